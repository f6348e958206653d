package hdf5io

import (
	"github.com/jmbenlloch/go-hdf5"
)

const RecoTagLength = 36
const NSamples = 6

type EventDataHDF5 struct {
	evt_number int32
	n_clusters int32
	n_gem1     int32
	n_gem2     int32
	status     int32
}

type RunInfoHDF5 struct {
	run_number int32
	reco_tag   [RecoTagLength]byte
}

type ClusterHDF5 struct {
	evt_number    int32
	cluster_id    int32
	energy        float32
	energy_res    float32
	x             float32
	y             float32
	z             float32
	center_id     int32
	center_energy float32
	sector        int32
	nhits         int32
	flags         uint32
	cluster_type  int32
}

type ClusterHitHDF5 struct {
	evt_number int32
	cluster_id int32
	module_id  int32
	energy     float32
	x          float32
	y          float32
}

type GEMHitHDF5 struct {
	evt_number int32
	detector   int32
	hit_id     int32
	x          float32
	y          float32
	z          float32
	charge_x   float32
	charge_y   float32
	size_x     int32
	size_y     int32
}

type MatchHDF5 struct {
	evt_number int32
	cluster_id int32
	gem1       int32
	gem2       int32
	x          float32
	y          float32
}

// Input tables written by the decoder.

type InputEventHDF5 struct {
	evt_number int32
	timestamp  uint64
}

type InputRunInfoHDF5 struct {
	run_number int32
}

type EnergyHDF5 struct {
	evt_number int32
	module_id  int32
	energy     float32
}

type StripHDF5 struct {
	evt_number int32
	det        int32
	plane      int32
	strip      int32
	charges    [NSamples]float32
}

func convertToRecoTag(s string) [RecoTagLength]byte {
	var byteArray [RecoTagLength]byte
	copy(byteArray[:], s)
	return byteArray
}

func createFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.OpenFile(fname, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{Name: groupName, Err: err}
	}
	return g, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compressionLevel int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	file_space, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{Name: name, Err: err}
	}
	defer file_space.Close()

	// create property list
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{Name: name, Err: err}
	}
	defer plist.Close()

	chunks := []uint{32768}
	plist.SetChunk(chunks)
	if compressionLevel > 0 {
		plist.SetDeflate(compressionLevel)
	}

	// create the memory data type
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{Name: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, file_space, plist)
	if err != nil {
		return nil, &ErrCreateTable{Name: name, Err: err}
	}
	return dset, nil
}

func writeEntryToTable[T any](dataset *hdf5.Dataset, name string, data T, counter int) error {
	array := []T{data}
	return writeArrayToTable(dataset, name, &array, counter)
}

// writeArrayToTable appends data after the first counter rows of dataset.
func writeArrayToTable[T any](dataset *hdf5.Dataset, name string, data *[]T, counter int) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return &ErrTable{Name: name, Err: err}
	}
	defer dataspace.Close()

	// extend
	rowsInFile := uint(counter)
	newsize := []uint{rowsInFile + length}
	if err := dataset.Resize(newsize); err != nil {
		return &ErrTable{Name: name, Err: err}
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{rowsInFile}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return &ErrTable{Name: name, Err: err}
	}

	if err := dataset.WriteSubset(data, dataspace, filespace); err != nil {
		return &ErrTable{Name: name, Err: err}
	}
	return nil
}

// readTable loads a whole one dimensional table.
func readTable[T any](file *hdf5.File, name string) ([]T, error) {
	dset, err := file.OpenDataset(name)
	if err != nil {
		return nil, &ErrTable{Name: name, Err: err}
	}
	defer dset.Close()

	space := dset.Space()
	dims, _, err := space.SimpleExtentDims()
	space.Close()
	if err != nil {
		return nil, &ErrTable{Name: name, Err: err}
	}
	if len(dims) != 1 {
		return nil, &ErrTable{Name: name, Err: errNotATable}
	}

	// The slice MUST be allocated before reading, HDF5 does not grow it
	data := make([]T, dims[0])
	if len(data) == 0 {
		return data, nil
	}
	if err := dset.Read(&data); err != nil {
		return nil, &ErrTable{Name: name, Err: err}
	}
	return data, nil
}
