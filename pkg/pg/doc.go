// Package pg wires PostgreSQL for the chat service.
//
// Connect builds a github.com/jackc/pgx/v5 pool from Config (PG_* variables)
// and retries while the database is still starting. Migrate applies the goose
// migrations embedded in the db package, which create the chat_messages and
// course_members tables. Healthcheck plugs the pool into the readiness probe.
//
//	pool, err := pg.Connect(ctx, cfg.PG, log)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//	if err := pg.Migrate(ctx, pool, db.Migrations, cfg.PG, log); err != nil {
//		return err
//	}
package pg
