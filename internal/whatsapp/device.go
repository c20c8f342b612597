package whatsapp

import (
	"context"
	"fmt"
	"time"

	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"

	"github.com/ashureev/wa-gateway/internal/session"
)

// DeviceStore is the part of the device database the client needs.
// *sqlstore.Container satisfies it.
type DeviceStore interface {
	GetDevice(ctx context.Context, jid types.JID) (*store.Device, error)
	NewDevice() *store.Device
}

// ResolveDevice picks the device to run with. A record naming a device that
// still exists resumes it; anything else yields a fresh, unpaired device.
// resumed reports which case applied.
func ResolveDevice(ctx context.Context, devices DeviceStore, rec *session.Record) (device *store.Device, resumed bool, err error) {
	if rec == nil {
		return devices.NewDevice(), false, nil
	}

	jid, err := types.ParseJID(rec.JID)
	if err != nil || jid.User == "" {
		return devices.NewDevice(), false, nil
	}

	device, err = devices.GetDevice(ctx, jid)
	if err != nil {
		return nil, false, fmt.Errorf("load device %s: %w", jid, err)
	}
	if device == nil {
		return devices.NewDevice(), false, nil
	}
	return device, true, nil
}

// recordFromDevice describes a logged-in device as a session record.
func recordFromDevice(d *store.Device, now time.Time) session.Record {
	rec := session.Record{
		Platform:        d.Platform,
		BusinessName:    d.BusinessName,
		PushName:        d.PushName,
		AuthenticatedAt: now.UTC(),
	}
	if d.ID != nil {
		rec.JID = d.ID.String()
	}
	if !d.LID.IsEmpty() {
		rec.LID = d.LID.String()
	}
	return rec
}
