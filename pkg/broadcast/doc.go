// Package broadcast is the real-time fan-out core of the course chat.
//
// A Registry maps each room (a course id) to the handles of its connected
// users, one handle per user. A Session owns one subscriber's stream: it
// registers a Queue sink, writes a connected event, keeps the stream alive with
// heartbeats and forwards everything the Dispatcher pushes into its queue. The
// Dispatcher fans an event out to a room, skipping the sender, and prunes any
// handle whose push fails so one dead subscriber never affects the others.
//
//	reg := broadcast.NewRegistry(broadcast.WithLogger(log))
//	disp := broadcast.NewDispatcher(reg, log)
//
//	// stream endpoint
//	sess := broadcast.NewSession(reg, room, userID)
//	err := sess.Run(r.Context(), transport)
//
//	// broadcast endpoint
//	disp.Broadcast(ctx, room, ev, senderID)
//
// Everything lives in process memory; a multi-process deployment would need an
// external pub/sub backbone in front of the Dispatcher.
package broadcast
