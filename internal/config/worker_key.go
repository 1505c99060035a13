package config

// Redis list keys shared by the result queue producer, the result worker and
// the status endpoint.
type WorkerKeyStruct struct {
	PersistResultsQueue string
	// Payloads the worker could not decode land here for inspection.
	ResultsDeadLetter string
}

var WorkerKey = &WorkerKeyStruct{
	PersistResultsQueue: "results:persist",
	ResultsDeadLetter:   "results:dead",
}
