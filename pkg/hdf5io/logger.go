package hdf5io

import recon "github.com/prad-exp/recon_go/pkg"

var (
	logger    recon.Logger
	verbosity int
)

// SetLogger sets the logger used by readers and writers. Nothing is logged
// until it is called.
func SetLogger(l recon.Logger, level int) {
	logger = l
	verbosity = level
}

func logInfo(level int, message string) {
	if logger != nil && verbosity >= level {
		logger.Info(message, "hdf5")
	}
}
