// Package pgdescriptor is the cloud-side descriptor cache: the far
// end of the session-resumption fast path, storing each device's
// last-known AppStateDescriptor in Postgres via jackc/pgx/v5. It
// mirrors DataStoreSqlImpl.go's schema-init-on-open shape, adapted
// from sqlite's single-file table to a connection-pooled Postgres
// table keyed by device id.
package pgdescriptor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nhirsama/deviceproto/internal/descriptor"
)

const schema = `
CREATE TABLE IF NOT EXISTS device_descriptors (
	device_id      TEXT PRIMARY KEY,
	system_crc     BIGINT,
	app_crc        BIGINT,
	subs_crc       BIGINT,
	protocol_flags BIGINT,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Store is a pgx-backed cache of the last descriptor the cloud
// computed for each device, consulted on session resumption.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and ensures the device_descriptors table
// exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgdescriptor: connect failed: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgdescriptor: schema init failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Get returns the cached descriptor for deviceID, if any.
func (s *Store) Get(ctx context.Context, deviceID string) (descriptor.AppStateDescriptor, bool, error) {
	var systemCRC, appCRC, subsCRC, flags *int64
	err := s.pool.QueryRow(ctx,
		`SELECT system_crc, app_crc, subs_crc, protocol_flags FROM device_descriptors WHERE device_id = $1`,
		deviceID).Scan(&systemCRC, &appCRC, &subsCRC, &flags)
	if err != nil {
		return descriptor.AppStateDescriptor{}, false, nil
	}

	d := descriptor.New()
	if systemCRC != nil {
		d = d.WithSystemCRC(uint32(*systemCRC))
	}
	if appCRC != nil {
		d = d.WithAppCRC(uint32(*appCRC))
	}
	if subsCRC != nil {
		d = d.WithSubscriptionsCRC(uint32(*subsCRC))
	}
	if flags != nil {
		d = d.WithProtocolFlags(uint32(*flags))
	}
	return d, true, nil
}

// Put upserts d as the current descriptor for deviceID.
func (s *Store) Put(ctx context.Context, deviceID string, d descriptor.AppStateDescriptor) error {
	systemCRC, _ := d.SystemCRC()
	appCRC, _ := d.AppCRC()
	subsCRC, _ := d.SubscriptionsCRC()
	flags, _ := d.ProtocolFlagsValue()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO device_descriptors (device_id, system_crc, app_crc, subs_crc, protocol_flags, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (device_id) DO UPDATE SET
			system_crc = excluded.system_crc, app_crc = excluded.app_crc,
			subs_crc = excluded.subs_crc, protocol_flags = excluded.protocol_flags,
			updated_at = now()`,
		deviceID, systemCRC, appCRC, subsCRC, flags)
	return err
}
