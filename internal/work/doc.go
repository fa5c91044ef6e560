// Package work provides the concurrency primitives of the pipeline.
//
// # Symbol batches
//
// RunBatches fans a per-symbol task out in fixed-width batches. Batches run
// one after another, tasks inside a batch run concurrently. A failing symbol
// is recorded in the Report and never stops its siblings; only cancellation
// of the context ends the run early. Work for a single symbol must stay inside
// one task so its bar and metric ordering is preserved.
//
// # Futures
//
// Future holds the result of a one-time asynchronous initialization. Every
// caller awaits the same in-flight computation.
package work
