package worker

import "github.com/fabricahq/fabrica/pkg/logger"

var workerLogger = logger.Get("Worker")

type (
	WorkerWakeupChan chan int
	WorkerStatus     int

	// TaskFn is the unit of work executed repeatedly by a worker. The
	// boolean return reports whether any work was actually performed;
	// when false the worker goes back to sleep until woken. A non-nil
	// error stops the worker.
	TaskFn func(Worker) (bool, error)

	Worker interface {
		Start()
		Status() WorkerStatus
		WakeupChan() WorkerWakeupChan
		Label() string
		Sleep() bool
		Close()
	}

	taskWorker struct {
		label         string
		task          TaskFn
		wakeupChan    WorkerWakeupChan
		currentStatus WorkerStatus
	}
)

const (
	SLEEPING WorkerStatus = iota
	WORKING
	FINISHED
)

func NewWorker(label string, task TaskFn) *taskWorker {
	return &taskWorker{
		label:         label,
		task:          task,
		wakeupChan:    make(WorkerWakeupChan),
		currentStatus: SLEEPING,
	}
}

// Start runs the workers task in a loop. Each time the task reports that
// no work was available, the worker sleeps until its wakeup channel is
// signalled. Closing the wakeup channel stops the worker for good.
func (worker *taskWorker) Start() {
	workerLogger.Emit(logger.NEW, "Starting worker %s\n", worker.label)
	worker.currentStatus = WORKING

	for {
		didWork, err := worker.task(worker)
		if err != nil {
			workerLogger.Emit(logger.ERROR, "Worker %s reported an error(%T): %v\n", worker.label, err, err.Error())
			break
		}

		if !didWork {
			if isAlive := worker.Sleep(); !isAlive {
				return
			}
		}
	}

	worker.currentStatus = FINISHED
	workerLogger.Emit(logger.STOP, "Worker %s has stopped\n", worker.label)
}

// Status returns the current status of this worker
func (worker *taskWorker) Status() WorkerStatus {
	return worker.currentStatus
}

func (worker *taskWorker) WakeupChan() WorkerWakeupChan {
	return worker.wakeupChan
}

// Close closes the Worker by closing the WakeupChan.
// Note that this does not interrupt currently running
// goroutines.
func (worker *taskWorker) Close() {
	close(worker.wakeupChan)
}

// Label returns the label for this worker
func (worker *taskWorker) Label() string {
	return worker.label
}

// Sleep puts a worker to sleep until it's wakeupChan is
// signalled from another goroutine. Returns a boolean that
// is 'false' if the wakeup channel was closed - indicating
// the worker should quit.
func (worker *taskWorker) Sleep() (isAlive bool) {
	worker.currentStatus = SLEEPING

	if _, isAlive = <-worker.wakeupChan; isAlive {
		worker.currentStatus = WORKING
	} else {
		workerLogger.Emit(logger.STOP, "Wakeup channel for worker '%v' has been closed - worker is exiting\n", worker.label)
		worker.currentStatus = FINISHED
	}

	return isAlive
}
