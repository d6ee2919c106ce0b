// Package taskengine provides an in-process, priority-lane task engine.
//
// Callers submit units of work tagged with a priority; a fixed pool of worker
// goroutines executes them in strict High > Medium > Low order, and callers
// later fetch the produced value by the identifier returned at submission.
//
// # Quick Start
//
//	engine := taskengine.NewEngine("app")
//	if err := engine.Initialize(taskengine.AutoWorkers); err != nil {
//		log.Fatal(err)
//	}
//	engine.Start()
//	defer engine.Close()
//
//	id := taskengine.Go(engine, taskengine.TaskPriorityHigh, func() int {
//		return 42
//	})
//	v, err := taskengine.Await[int](ctx, engine, id)
//
// # Key Concepts
//
// Lanes: three independently locked FIFO queues, one per priority. A
// non-empty High lane starves Medium and Low; there is no fairness policy.
//
// Results: each identifier owns one slot that is written at most once.
// GetResult never blocks and reports ErrTaskNotFound until the value exists.
// A task that returns an error or panics leaves its slot empty for good.
//
// Shutdown: StopAfterCurrent lets running tasks finish and abandons the
// queue; DrainAllQueued blocks until every queued task has run. Kill also
// joins the workers, after which the pool needs Initialize and Start again.
//
// # Global Engine
//
//	taskengine.InitGlobalEngine(4)
//	defer taskengine.ShutdownGlobalEngine()
//
//	id := taskengine.GetGlobalEngine().Submit(work, taskengine.TaskPriorityLow)
package taskengine
