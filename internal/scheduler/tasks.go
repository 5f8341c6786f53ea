package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"venue_enrichment_backend/internal/enrichment/service"
)

const TaskEnrichmentBatch = "enrichment.batch"

func NewEnrichmentBatchTask(opts service.Options) (*asynq.Task, error) {
	data, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEnrichmentBatch, data), nil
}

func ParseEnrichmentBatchPayload(task *asynq.Task) (service.Options, error) {
	var opts service.Options
	if err := json.Unmarshal(task.Payload(), &opts); err != nil {
		return service.Options{}, err
	}
	return opts, nil
}
