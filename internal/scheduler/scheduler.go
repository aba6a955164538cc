// Package scheduler runs a list of tasks on a fixed number of workers.
package scheduler

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Task is one unit of work. Run returns a short message on success.
type Task struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

type Result struct {
	Name    string
	Message string
	Err     error
}

type indexedTask struct {
	index int
	task  Task
}

// Run executes tasks with numWorkers workers and returns one result per task
// in input order. Tasks not yet started when ctx is cancelled report the
// context error.
func Run(ctx context.Context, tasks []Task, numWorkers int) []Result {
	if numWorkers < 1 {
		numWorkers = 1
	}
	results := make([]Result, len(tasks))

	jobCh := make(chan indexedTask, len(tasks))
	for i, task := range tasks {
		jobCh <- indexedTask{index: i, task: task}
	}
	close(jobCh)

	var wg sync.WaitGroup
	for i := 0; i < min(numWorkers, len(tasks)); i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processTasks(ctx, workerID, jobCh, results)
		}(i)
	}
	wg.Wait()
	return results
}

// processTasks writes only to the result slots of the tasks it takes.
func processTasks(ctx context.Context, workerID int, jobCh <-chan indexedTask, results []Result) {
	for it := range jobCh {
		res := Result{Name: it.task.Name}
		if err := ctx.Err(); err != nil {
			res.Err = err
			results[it.index] = res
			continue
		}
		res.Message, res.Err = it.task.Run(ctx)
		if res.Err != nil {
			log.Debug().Str("op", "scheduler/process").Int("worker", workerID).Str("task", it.task.Name).Err(res.Err).Msg("task failed")
		}
		results[it.index] = res
	}
}
