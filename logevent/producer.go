package logevent

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/iidesho/auditflow/buffer"
	"github.com/iidesho/auditflow/metrics"
	"github.com/iidesho/bragi/sbragi"
)

var log = sbragi.WithLocalScope(sbragi.LevelInfo)

// Producer is what request handlers use to record audit events. It only
// serialises and pushes; persistence happens in the scheduled flush tasks.
type Producer struct {
	buf buffer.Buffer
	now func() time.Time
}

func NewProducer(buf buffer.Buffer) *Producer {
	return &Producer{
		buf: buf,
		now: time.Now,
	}
}

func (p *Producer) Login(ctx context.Context, e LoginEvent) error {
	e.TraceID, e.OperateTime = p.fill(e.TraceID, e.OperateTime)
	payload, err := Encode(e)
	if err != nil {
		return err
	}
	return p.push(ctx, KeyLogin, payload)
}

func (p *Producer) Operation(ctx context.Context, e OperationEvent) error {
	e.TraceID, e.OperateTime = p.fill(e.TraceID, e.OperateTime)
	payload, err := Encode(e)
	if err != nil {
		return err
	}
	return p.push(ctx, KeyOperation, payload)
}

// Raw pushes an already serialised payload without validating it.
func (p *Producer) Raw(ctx context.Context, c Category, payload string) error {
	return p.push(ctx, c.Key(), payload)
}

func (p *Producer) push(ctx context.Context, key, payload string) error {
	err := p.buf.Push(ctx, key, payload)
	if log.WithError(err).Error("pushing audit event", "key", key) {
		return err
	}
	metrics.BufferPushes.WithLabelValues(key).Inc()
	return nil
}

func (p *Producer) fill(traceID string, operateTime int64) (string, int64) {
	if traceID == "" {
		traceID = uuid.Must(uuid.NewV7()).String()
	}
	if operateTime == 0 {
		operateTime = p.now().UnixMilli()
	}
	return traceID, operateTime
}
