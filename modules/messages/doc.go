// Package messages exposes course room history over HTTP.
//
//	GET    /rooms/{room}/messages?userId=&limit=&before=
//	POST   /rooms/{room}/messages          {"id"?, "authorId", "content", "type"?}
//	DELETE /rooms/{room}/messages/{id}?userId=
//
// Only room members may read or post, and only the author may delete.
// Error codes not_found, not_member, not_author and already_exists are part
// of the contract with the chat client.
package messages
