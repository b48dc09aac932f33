// Package chat mounts the real-time side of course rooms over HTTP.
//
// Routes:
//
//	GET  /stream?room=&userId=   Server-Sent Events stream of chat events
//	POST /broadcast              fan an event out to a room
//	GET  /rooms/{room}/online    number of open streams in a room
//	GET  /stats                  open streams and active rooms
//
// Every event on the stream is an SSE "message" event whose data is the JSON
// envelope, e.g. {"type":"message","data":{...}}. The first event of a
// stream is always {"type":"connected","message":"connected"}; the
// subscription is registered before it is written.
//
// Broadcast only relays. Messages must be stored through the messages API
// before they are announced, and only "message" and "delete" events may be
// requested; connected and heartbeat events come from the stream itself.
package chat
