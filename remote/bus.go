package remote

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/vinayprograms/finserve/bus"
	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/logging"
	"github.com/vinayprograms/finserve/telemetry"
)

// DefaultSubjectPrefix roots the request subjects.
const DefaultSubjectPrefix = "finserve.remote"

// ResponderQueue is the queue group responders join.
const ResponderQueue = "finserve-remote"

// busRequest is the wire form of a call.
type busRequest struct {
	Resource string               `json:"resource"`
	ID       string               `json:"id,omitempty"`
	Record   Record               `json:"record,omitempty"`
	Trace    telemetry.MapCarrier `json:"trace,omitempty"`
}

// busReply is the wire form of a result. Error carries a structured error.
type busReply struct {
	Records []Record       `json:"records,omitempty"`
	Record  Record         `json:"record,omitempty"`
	Error   *ferrors.Error `json:"error,omitempty"`
}

// BusSource forwards calls over a message bus to a Responder.
type BusSource struct {
	bus    bus.MessageBus
	prefix string
}

// NewBusSource creates a source using subjects "<prefix>.<op>".
func NewBusSource(b bus.MessageBus, prefix string) *BusSource {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &BusSource{bus: b, prefix: prefix}
}

func (s *BusSource) call(ctx context.Context, op string, req busRequest) (*busReply, error) {
	req.Trace = telemetry.MapCarrier{}
	telemetry.InjectContext(ctx, req.Trace)

	data, err := json.Marshal(req)
	if err != nil {
		return nil, ferrors.Wrap(err, "encode "+op)
	}

	msg, err := s.bus.Request(ctx, bus.Subject(s.prefix, op), data)
	switch {
	case err == nil:
	case err == bus.ErrTimeout:
		return nil, ferrors.WrapWithCode(err, ferrors.ErrCodeTimeout, op+" "+req.Resource,
			ferrors.WithResource(req.Resource))
	default:
		return nil, ferrors.WrapWithCode(err, ferrors.ErrCodeUnavailable, op+" "+req.Resource,
			ferrors.WithResource(req.Resource))
	}

	var reply busReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, ferrors.WrapWithCode(err, ferrors.ErrCodeRemoteQuery, "decode "+op,
			ferrors.WithResource(req.Resource))
	}
	if reply.Error != nil {
		return nil, reply.Error
	}
	return &reply, nil
}

func (s *BusSource) SelectAll(ctx context.Context, resource string) ([]Record, error) {
	reply, err := s.call(ctx, OpSelectAll, busRequest{Resource: resource})
	if err != nil {
		return nil, err
	}
	return reply.Records, nil
}

func (s *BusSource) SelectOne(ctx context.Context, resource, id string) (Record, error) {
	reply, err := s.call(ctx, OpSelectOne, busRequest{Resource: resource, ID: id})
	if err != nil {
		return nil, err
	}
	return reply.Record, nil
}

func (s *BusSource) Insert(ctx context.Context, resource string, rec Record) (Record, error) {
	reply, err := s.call(ctx, OpInsert, busRequest{Resource: resource, Record: rec})
	if err != nil {
		return nil, err
	}
	return reply.Record, nil
}

func (s *BusSource) Update(ctx context.Context, resource, id string, partial Record) error {
	_, err := s.call(ctx, OpUpdate, busRequest{Resource: resource, ID: id, Record: partial})
	return err
}

func (s *BusSource) Delete(ctx context.Context, resource, id string) error {
	_, err := s.call(ctx, OpDelete, busRequest{Resource: resource, ID: id})
	return err
}

// Responder serves bus requests from a backing Source.
type Responder struct {
	bus    bus.MessageBus
	source Source
	prefix string
	logger *logging.Logger

	mu   sync.Mutex
	subs []bus.Subscription
	wg   sync.WaitGroup
}

// NewResponder creates a responder for source.
func NewResponder(b bus.MessageBus, source Source, prefix string, logger *logging.Logger) *Responder {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Responder{bus: b, source: source, prefix: prefix, logger: logger.WithComponent("responder")}
}

// Start subscribes to every operation subject. Requests are served until
// Stop is called or ctx is done.
func (r *Responder) Start(ctx context.Context) error {
	for _, op := range []string{OpSelectAll, OpSelectOne, OpInsert, OpUpdate, OpDelete} {
		sub, err := r.bus.QueueSubscribe(bus.Subject(r.prefix, op), ResponderQueue)
		if err != nil {
			r.Stop()
			return err
		}
		r.mu.Lock()
		r.subs = append(r.subs, sub)
		r.mu.Unlock()

		r.wg.Add(1)
		go r.serve(ctx, op, sub)
	}
	return nil
}

func (r *Responder) serve(ctx context.Context, op string, sub bus.Subscription) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			if msg.Reply == "" {
				continue
			}
			reply := r.handle(ctx, op, msg.Data)
			data, err := json.Marshal(reply)
			if err != nil {
				r.logger.Error("encode reply", map[string]interface{}{"op": op, "error": err.Error()})
				continue
			}
			if err := r.bus.Publish(msg.Reply, data); err != nil {
				r.logger.Warn("publish reply", map[string]interface{}{"op": op, "error": err.Error()})
			}
		}
	}
}

func (r *Responder) handle(ctx context.Context, op string, data []byte) busReply {
	var req busRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return busReply{Error: ferrors.InvalidInput("malformed request", err.Error())}
	}
	if req.Trace != nil {
		ctx = telemetry.ExtractContext(ctx, req.Trace)
	}

	var (
		reply busReply
		err   error
	)
	switch op {
	case OpSelectAll:
		reply.Records, err = r.source.SelectAll(ctx, req.Resource)
	case OpSelectOne:
		reply.Record, err = r.source.SelectOne(ctx, req.Resource, req.ID)
	case OpInsert:
		reply.Record, err = r.source.Insert(ctx, req.Resource, req.Record)
	case OpUpdate:
		err = r.source.Update(ctx, req.Resource, req.ID, req.Record)
	case OpDelete:
		err = r.source.Delete(ctx, req.Resource, req.ID)
	}
	if err != nil {
		se, ok := ferrors.AsStructured(err).(*ferrors.Error)
		if !ok {
			se = ferrors.Remote(req.Resource, err)
		}
		return busReply{Error: se}
	}
	return reply
}

// Stop unsubscribes and waits for in-flight requests.
func (r *Responder) Stop() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	r.wg.Wait()
}
