// Package redis connects the chat service to Redis via github.com/redis/go-redis/v9.
//
// Connect retries until the server answers PING; Healthcheck plugs the client
// into the readiness probe. The messages package builds its RedisStore on top
// of the returned client, namespacing keys with Config.KeyPrefix.
package redis
