package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/onboardrag/core/internal/config"
	"github.com/onboardrag/core/internal/job"
	"github.com/onboardrag/core/internal/metrics"
	"github.com/onboardrag/core/internal/rag"
	"github.com/onboardrag/core/pkg/logger_i"
)

var (
	_jobService        *job.Service
	_ragService        rag.Service
	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	dispatcherChannel  chan bool
	currentWorkerCount int64
	logger             *logger_i.Logger
)

func InitServices(jobService *job.Service, ragService rag.Service) {
	_jobService = jobService
	_ragService = ragService
	dispatcherChannel = jobService.DispatcherChannel
}

func InitWorkerPool(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	stopWorkerChannel = stopWorkerChan
	workerWaitGroup = waitGroup
	logger = logger_i.NewLogger("worker_pool")
	logger.Info("initializing worker pool")
	go dispatcher()
}

// dispatcher grows the pool by one worker per enqueue signal, capped at
// MaxWorkerCount. Workers retire on their own after sitting idle.
func dispatcher() {
	createWorker()
	logger.Info("dispatcher started")
	for range dispatcherChannel {
		if atomic.LoadInt64(&currentWorkerCount) < config.MaxWorkerCount {
			createWorker()
		}
	}
}

func createWorker() {
	workerWaitGroup.Add(1)
	go worker()
	atomic.AddInt64(&currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	logger.Info("created worker", "workerCount", atomic.LoadInt64(&currentWorkerCount))
}

func worker() {
	for {
		select {
		case currentJob := <-_jobService.JobChannel:
			executeJob(currentJob)
			metrics.DecrementJobsInQueue()

		case <-stopWorkerChannel:
			removeWorker("stop signal received")
			return

		case <-time.After(config.IdleWorkerTimeout):
			if atomic.LoadInt64(&currentWorkerCount) > config.MinWorkerCount {
				removeWorker("idle timeout")
				return
			}
		}
	}
}
