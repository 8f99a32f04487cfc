package worker

type Worker struct {
	manager    *Manager
	pool       *jobChannelPool
	jobChannel chan Job
}

func NewWorker(pool *jobChannelPool, manager *Manager) *Worker {
	return &Worker{
		manager:    manager,
		pool:       pool,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			w.pool.Release(w.jobChannel)
			job := <-w.jobChannel
			switch job.Type {
			case Process:
				w.manager.handleProcess(job.ProcessTask)
			case Ask:
				w.manager.handleAsk(job.AskTask)
			case Stop:
				w.pool.retire(w.jobChannel)
				return
			}
		}
	}()
}
