package recon

import (
	"fmt"
	"sync"
)

// Worker reconstructs events until jobs is closed. A panic while
// processing an event is turned into an error result for that event.
func Worker(id int, reco *Reconstructor, jobs <-chan Event, results chan<- Result) {
	for event := range jobs {
		if verbosity > 1 {
			logger.Info(fmt.Sprintf("Worker %d processing event %d", id, event.EventID), "worker")
		}
		results <- processSafely(id, reco, event)
	}
}

func processSafely(id int, reco *Reconstructor, event Event) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			errMessage := fmt.Errorf("worker %d recovered from panic on event %d: %v", id, event.EventID, r)
			logger.Error(errMessage.Error())
			result = Result{RunNumber: event.RunNumber, EventID: event.EventID, Error: true}
		}
	}()
	return reco.Process(event)
}

// RunWorkers starts n workers and returns the channel where their results
// arrive. The channel is closed once jobs is drained.
func RunWorkers(n int, reco *Reconstructor, jobs <-chan Event) <-chan Result {
	n = max(n, 1)
	results := make(chan Result, 100)
	var wg sync.WaitGroup
	for w := 1; w <= n; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			Worker(id, reco, jobs, results)
		}(w)
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}
