// Package bus provides the messaging transport used to reach a remote data
// source that lives in another process.
//
// # Implementations
//
//   - NATSBus: NATS core messaging
//   - MemoryBus: in-process channels for tests and single-binary deployments
//
// # Request/Reply
//
// The remote package speaks JSON over request/reply:
//
//	// Responder side
//	sub, _ := b.QueueSubscribe("finserve.remote.select_all", "finserve-remote")
//	for msg := range sub.Messages() {
//	    b.Publish(msg.Reply, response)
//	}
//
//	// Requester side
//	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
//	defer cancel()
//	reply, err := b.Request(ctx, "finserve.remote.select_all", req)
//
// Queue groups spread requests across responder replicas; each request is
// answered by exactly one member.
package bus
