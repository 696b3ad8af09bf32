// Package heartbeat lets finserve processes sharing a bus see each other.
//
// A process answering remote requests over the bus (a responder) publishes a
// Beat every few seconds. Processes using the bus remote run a Monitor and
// report the responders they can see on /healthz, so a missing responder
// shows up before reads start timing out.
//
//	sender, _ := heartbeat.NewSender(heartbeat.SenderConfig{
//	    Bus:      b,
//	    Instance: id,
//	    Role:     heartbeat.RoleResponder,
//	})
//	sender.Start(ctx)
//
//	monitor, _ := heartbeat.NewMonitor(heartbeat.MonitorConfig{Bus: b})
//	monitor.OnDead(func(beat *heartbeat.Beat) { ... })
//	monitor.Start()
//	monitor.Alive(heartbeat.RoleResponder)
//
// All beats share one subject; a final "stopping" beat removes an instance
// immediately instead of waiting for the timeout.
package heartbeat
