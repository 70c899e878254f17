// Package devreg keeps a persistent registry of every input device the
// process has ever seen, keyed by stable hardware identity rather than by
// the process-local handle.
package devreg

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/ttsuki/librawinput/pkg/rawinput"
)

// Record is one registered device. DescriptorHash is the xxhash of the raw
// report descriptor, useful for spotting firmware changes across sessions.
type Record struct {
	Key            string    `json:"key" yaml:"key"`
	Type           string    `json:"type" yaml:"type"`
	VendorID       uint16    `json:"vendorId" yaml:"vendorId"`
	ProductID      uint16    `json:"productId" yaml:"productId"`
	Manufacturer   string    `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Product        string    `json:"product,omitempty" yaml:"product,omitempty"`
	Serial         string    `json:"serial,omitempty" yaml:"serial,omitempty"`
	DescriptorHash uint64    `json:"descriptorHash,omitempty" yaml:"descriptorHash,omitempty"`
	FirstSeenAt    time.Time `json:"firstSeenAt" yaml:"firstSeenAt"`
	LastSeenAt     time.Time `json:"lastSeenAt" yaml:"lastSeenAt"`
}

type Registry struct {
	log *zap.Logger
	db  *badger.DB
	now func() time.Time
}

func New(db *badger.DB, log *zap.Logger, now func() time.Time) *Registry {
	return &Registry{
		log: log.Named("devreg"),
		db:  db,
		now: now,
	}
}

const keyPrefix = "devices/"

// deviceKey builds the stable identity for a descriptor. The serial number
// disambiguates two identical devices when present; the path is a weaker
// fallback that survives only as long as the device stays plugged in.
func deviceKey(d rawinput.DeviceDescriptor) string {
	suffix := d.Serial
	if suffix == "" {
		suffix = d.Path
	}
	return fmt.Sprintf("%s%04x:%04x/%s", keyPrefix, d.VendorID, d.ProductID, suffix)
}

// Touch registers a device sighting, creating the record on first sight and
// bumping LastSeenAt on every subsequent one.
func (r *Registry) Touch(d rawinput.DeviceDescriptor, descriptorHash uint64) (Record, error) {
	var rec Record
	now := r.now()
	key := deviceKey(d)
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			rec = Record{FirstSeenAt: now}
		case err != nil:
			return err
		default:
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
		}
		rec.Key = key
		rec.Type = d.Type.String()
		rec.VendorID = d.VendorID
		rec.ProductID = d.ProductID
		rec.Manufacturer = d.Manufacturer
		rec.Product = d.Product
		rec.Serial = d.Serial
		if descriptorHash != 0 {
			if rec.DescriptorHash != 0 && rec.DescriptorHash != descriptorHash {
				r.log.Warn("report descriptor changed since last session",
					zap.String("key", key))
			}
			rec.DescriptorHash = descriptorHash
		}
		if rec.FirstSeenAt.IsZero() {
			rec.FirstSeenAt = now
		}
		rec.LastSeenAt = now
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		return txn.Set([]byte(key), b)
	})
	if err != nil {
		return Record{}, fmt.Errorf("failed to register device: %w", err)
	}
	return rec, nil
}

// List returns every registered device in key order.
func (r *Registry) List() ([]Record, error) {
	var out []Record
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return out, nil
}

// ExportYAML writes the full registry as a YAML document.
func (r *Registry) ExportYAML(w io.Writer) error {
	records, err := r.List()
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	_, err = w.Write(b)
	return err
}
