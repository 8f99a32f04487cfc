package worker

import (
	"context"

	"lawdesk/internal/models"
	"lawdesk/internal/service/casefile"
)

type JobType string

const (
	// Process runs the document pipeline for one upload.
	Process JobType = "process"
	// Ask routes a user message through the follow-up thread.
	Ask JobType = "ask"
	// Stop retires the receiving worker.
	Stop JobType = "stop"
)

type processReturn struct {
	doc *models.Document
	err error
}

type askReturn struct {
	text     string
	consumed bool
	err      error
}

type processTask struct {
	ctx      context.Context
	upload   casefile.Upload
	resultCh chan processReturn
}

type askTask struct {
	ctx      context.Context
	userID   int64
	message  string
	resultCh chan askReturn
}

type Job struct {
	Type        JobType
	ProcessTask *processTask
	AskTask     *askTask
}

func (job Job) userID() int64 {
	switch job.Type {
	case Process:
		return job.ProcessTask.upload.UserID
	case Ask:
		return job.AskTask.userID
	default:
		return 0
	}
}
