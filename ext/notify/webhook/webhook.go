package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/goto/salt/log"

	"github.com/vigil-dq/vigil/core/schedule"
	"github.com/vigil-dq/vigil/core/schedule/service"
	"github.com/vigil-dq/vigil/internal/errors"
)

const defaultTimeout = 10 * time.Second

// Notifier delivers raised alerts as JSON documents POSTed to a configured
// endpoint.
type Notifier struct {
	l      log.Logger
	url    string
	client *http.Client
}

func NewNotifier(logger log.Logger, url string, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Notifier{
		l:      logger,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type alertPayload struct {
	EventID      string   `json:"event_id"`
	JobName      string   `json:"job_name"`
	ExecutionID  string   `json:"execution_id"`
	ResultID     string   `json:"result_id"`
	Description  string   `json:"description,omitempty"`
	Metric       string   `json:"metric"`
	Value        float64  `json:"value"`
	MinimumValue *float64 `json:"minimum_value,omitempty"`
	MaximumValue *float64 `json:"maximum_value,omitempty"`
	RaisedAt     string   `json:"raised_at"`
}

func (n *Notifier) Notify(ctx context.Context, event service.AlertEvent) error {
	payload := alertPayload{
		EventID:      uuid.NewString(),
		JobName:      event.JobName.String(),
		ExecutionID:  string(event.ExecutionID),
		ResultID:     event.ResultID,
		Description:  event.Alert.Description,
		Metric:       event.Alert.Metric.String(),
		Value:        event.Value,
		MinimumValue: event.Alert.MinimumValue,
		MaximumValue: event.Alert.MaximumValue,
		RaisedAt:     event.RaisedAt.UTC().Format(time.RFC3339),
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return errors.InternalError(schedule.EntitySchedule, "unable to encode alert payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(payloadJSON))
	if err != nil {
		return errors.InternalError(schedule.EntitySchedule, "unable to build alert request", err)
	}
	req.Header.Add("Content-Type", "application/json")

	res, err := n.client.Do(req)
	if err != nil {
		return errors.InternalError(schedule.EntitySchedule, "unable to deliver alert to "+n.url, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusMultipleChoices {
		return errors.InternalError(schedule.EntitySchedule, "alert endpoint "+n.url+" answered "+res.Status, nil)
	}

	n.l.Debug("alert delivered", "event", payload.EventID, "job", payload.JobName)
	return nil
}
