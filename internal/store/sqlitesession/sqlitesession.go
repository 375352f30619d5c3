// Package sqlitesession decorates a channel.Channel with session-blob
// persistence backed by modernc.org/sqlite, grounded in
// DataStoreSqlImpl.go's sql.Open("sqlite", path) plus schema-init
// pattern, so a device-agent process restart can resume a session
// instead of always re-handshaking.
package sqlitesession

import (
	"database/sql"
	"fmt"

	"github.com/nhirsama/deviceproto/internal/channel"
	"github.com/nhirsama/deviceproto/internal/descriptor"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	device_id TEXT PRIMARY KEY,
	blob BLOB,
	system_crc INTEGER,
	app_crc INTEGER,
	subs_crc INTEGER,
	protocol_flags INTEGER,
	has_descriptor INTEGER DEFAULT 0
);`

// Store owns the sqlite handle; a Channel is created per device id
// against a shared Store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and
// ensures the sessions table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Channel wraps an inner channel.Channel. SessionCommand(SaveSession)
// writes the session blob; SessionCommand(LoadSession) restores the
// blob and, if one was stored with PersistDescriptor, the cached
// descriptor. Every command is then passed on to the inner Channel.
type Channel struct {
	channel.Channel
	store    *Store
	deviceID string
	blob     []byte
	cached   descriptor.AppStateDescriptor
	hasCache bool
}

// Wrap returns a Channel that persists inner's session state under
// deviceID in store.
func Wrap(inner channel.Channel, store *Store, deviceID string) *Channel {
	return &Channel{Channel: inner, store: store, deviceID: deviceID}
}

func (c *Channel) Establish() (channel.EstablishResult, error) {
	result, err := c.Channel.Establish()
	if err != nil {
		return result, err
	}
	if result == channel.SessionResumed {
		if err := c.load(); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (c *Channel) SessionCommand(cmd channel.SessionCommand) error {
	switch cmd {
	case channel.SaveSession:
		if err := c.save(); err != nil {
			return err
		}
	case channel.LoadSession:
		if err := c.load(); err != nil {
			return err
		}
	case channel.DiscardSession:
		if _, err := c.store.db.Exec(`DELETE FROM sessions WHERE device_id = ?`, c.deviceID); err != nil {
			return err
		}
	}
	return c.Channel.SessionCommand(cmd)
}

func (c *Channel) CachedAppStateDescriptor() (descriptor.AppStateDescriptor, bool) {
	if c.hasCache {
		return c.cached, true
	}
	return c.Channel.CachedAppStateDescriptor()
}

func (c *Channel) save() error {
	_, err := c.store.db.Exec(`
		INSERT INTO sessions (device_id, blob, has_descriptor)
		VALUES (?, ?, 0)
		ON CONFLICT(device_id) DO UPDATE SET blob = excluded.blob`,
		c.deviceID, c.blob)
	return err
}

func (c *Channel) load() error {
	var blob []byte
	var hasDescriptor int
	var systemCRC, appCRC, subsCRC, flags sql.NullInt64
	err := c.store.db.QueryRow(`
		SELECT blob, has_descriptor, system_crc, app_crc, subs_crc, protocol_flags
		FROM sessions WHERE device_id = ?`, c.deviceID).
		Scan(&blob, &hasDescriptor, &systemCRC, &appCRC, &subsCRC, &flags)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sqlitesession: load failed: %w", err)
	}
	c.blob = blob
	if hasDescriptor == 0 {
		return nil
	}
	d := descriptor.New()
	if systemCRC.Valid {
		d = d.WithSystemCRC(uint32(systemCRC.Int64))
	}
	if appCRC.Valid {
		d = d.WithAppCRC(uint32(appCRC.Int64))
	}
	if subsCRC.Valid {
		d = d.WithSubscriptionsCRC(uint32(subsCRC.Int64))
	}
	if flags.Valid {
		d = d.WithProtocolFlags(uint32(flags.Int64))
	}
	c.cached, c.hasCache = d, true
	return nil
}

// PersistDescriptor stores d as the cloud's last-known descriptor for
// this device; the next load (LoadSession or a resumed Establish)
// makes it the cached descriptor.
func (c *Channel) PersistDescriptor(d descriptor.AppStateDescriptor) error {
	systemCRC, hasSystem := d.SystemCRC()
	appCRC, hasApp := d.AppCRC()
	subsCRC, hasSubs := d.SubscriptionsCRC()
	flags, hasFlags := d.ProtocolFlagsValue()
	_, err := c.store.db.Exec(`
		INSERT INTO sessions (device_id, has_descriptor, system_crc, app_crc, subs_crc, protocol_flags)
		VALUES (?, 1, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			has_descriptor = 1, system_crc = excluded.system_crc,
			app_crc = excluded.app_crc, subs_crc = excluded.subs_crc,
			protocol_flags = excluded.protocol_flags`,
		c.deviceID,
		nullableUint32(systemCRC, hasSystem), nullableUint32(appCRC, hasApp),
		nullableUint32(subsCRC, hasSubs), nullableUint32(flags, hasFlags))
	return err
}

func nullableUint32(v uint32, ok bool) any {
	if !ok {
		return nil
	}
	return int64(v)
}
