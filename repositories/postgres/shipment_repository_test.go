package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborline/shipment-tracker/repositories"
)

var shipmentCols = []string{
	"id", "hbl", "mbl", "po_number", "customer_reference",
	"origin", "destination", "current_status", "eta", "last_event_at", "customer_scope",
}

func TestListByScopes(t *testing.T) {
	ctx := context.Background()

	t.Run("lowercases scopes and caps the result set", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewShipmentRepository(db, zap.NewNop())

		eta := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows(shipmentCols).
			AddRow("SHP-1", "HBL-1", nil, "PO-9", nil, "Shanghai", "Rotterdam", "Departed origin port", eta, eta, "ACME").
			AddRow("SHP-2", nil, "MBL-2", nil, nil, "Ningbo", "Hamburg", "", nil, nil, "acme")

		mock.ExpectQuery(`WHERE LOWER\(customer_scope\) = ANY\(\$1\)[\s\S]*ORDER BY last_event_at DESC NULLS LAST[\s\S]*LIMIT 300`).
			WithArgs(pq.Array([]string{"acme", "globex"})).
			WillReturnRows(rows)

		shipments, err := repo.ListByScopes(ctx, []string{"ACME", "Globex"})

		require.NoError(t, err)
		require.Len(t, shipments, 2)
		assert.Equal(t, "SHP-1", shipments[0].ID)
		assert.Equal(t, "Shanghai - Rotterdam", shipments[0].Route())
		assert.Nil(t, shipments[1].ETA)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no scopes short-circuits without querying", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewShipmentRepository(db, zap.NewNop())

		shipments, err := repo.ListByScopes(ctx, nil)

		require.NoError(t, err)
		assert.Empty(t, shipments)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the shipment", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewShipmentRepository(db, zap.NewNop())

		rows := sqlmock.NewRows(shipmentCols).
			AddRow("SHP-1", nil, nil, nil, nil, "Busan", "Long Beach", "Discharged", nil, nil, "ACME")

		mock.ExpectQuery(`FROM shipments\s+WHERE id = \$1`).
			WithArgs("SHP-1").
			WillReturnRows(rows)

		shipment, err := repo.GetByID(ctx, "SHP-1")

		require.NoError(t, err)
		assert.Equal(t, "ACME", shipment.CustomerScope)
		assert.Equal(t, "Discharged", shipment.CurrentStatus)
	})

	t.Run("missing shipment maps to ErrShipmentNotFound", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewShipmentRepository(db, zap.NewNop())

		mock.ExpectQuery(`FROM shipments\s+WHERE id = \$1`).
			WithArgs("SHP-MISSING").
			WillReturnRows(sqlmock.NewRows(shipmentCols))

		_, err := repo.GetByID(ctx, "SHP-MISSING")

		assert.ErrorIs(t, err, repositories.ErrShipmentNotFound)
	})
}

func TestLatestEventCode(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the newest code", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewShipmentRepository(db, zap.NewNop())

		mock.ExpectQuery(`SELECT event_code[\s\S]*ORDER BY event_time DESC[\s\S]*LIMIT 1`).
			WithArgs("SHP-1").
			WillReturnRows(sqlmock.NewRows([]string{"event_code"}).AddRow("ATD"))

		code, err := repo.LatestEventCode(ctx, "SHP-1")

		require.NoError(t, err)
		require.NotNil(t, code)
		assert.Equal(t, "ATD", *code)
	})

	t.Run("no events yields nil without error", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewShipmentRepository(db, zap.NewNop())

		mock.ExpectQuery(`SELECT event_code`).
			WithArgs("SHP-QUIET").
			WillReturnRows(sqlmock.NewRows([]string{"event_code"}))

		code, err := repo.LatestEventCode(ctx, "SHP-QUIET")

		require.NoError(t, err)
		assert.Nil(t, code)
	})
}

func TestLatestEventCodes(t *testing.T) {
	ctx := context.Background()

	t.Run("maps each shipment to its newest code", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewShipmentRepository(db, zap.NewNop())

		rows := sqlmock.NewRows([]string{"shipment_id", "event_code"}).
			AddRow("SHP-1", "DELIVERED").
			AddRow("SHP-2", "ATD")

		mock.ExpectQuery(`SELECT DISTINCT ON \(shipment_id\)`).
			WithArgs(pq.Array([]string{"SHP-1", "SHP-2", "SHP-3"})).
			WillReturnRows(rows)

		codes, err := repo.LatestEventCodes(ctx, []string{"SHP-1", "SHP-2", "SHP-3"})

		require.NoError(t, err)
		require.NotNil(t, codes["SHP-1"])
		assert.Equal(t, "DELIVERED", *codes["SHP-1"])
		require.NotNil(t, codes["SHP-2"])
		assert.Equal(t, "ATD", *codes["SHP-2"])

		_, present := codes["SHP-3"]
		assert.False(t, present, "eventless shipments should be absent from the map")
	})

	t.Run("empty id list short-circuits", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewShipmentRepository(db, zap.NewNop())

		codes, err := repo.LatestEventCodes(ctx, nil)

		require.NoError(t, err)
		assert.Empty(t, codes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventsForShipment(t *testing.T) {
	ctx := context.Background()

	t.Run("returns full history newest first", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewShipmentRepository(db, zap.NewNop())

		t1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
		t2 := time.Date(2026, 7, 20, 9, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"id", "shipment_id", "event_code", "event_time", "notes", "location", "source"}).
			AddRow("7a0f0a52-0000-4000-8000-000000000001", "SHP-1", "DIS", t1, nil, "Rotterdam", "carrier").
			AddRow("7a0f0a52-0000-4000-8000-000000000002", "SHP-1", "ATD", t2, "vessel sailed", "Shanghai", "carrier")

		mock.ExpectQuery(`FROM shipment_events\s+WHERE shipment_id = \$1\s+ORDER BY event_time DESC`).
			WithArgs("SHP-1").
			WillReturnRows(rows)

		events, err := repo.EventsForShipment(ctx, "SHP-1")

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "DIS", events[0].EventCode)
		assert.Equal(t, "ATD", events[1].EventCode)
		require.NotNil(t, events[1].Notes)
		assert.Equal(t, "vessel sailed", *events[1].Notes)
	})

	t.Run("no events yields empty slice", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewShipmentRepository(db, zap.NewNop())

		mock.ExpectQuery(`FROM shipment_events`).
			WithArgs("SHP-QUIET").
			WillReturnRows(sqlmock.NewRows([]string{"id", "shipment_id", "event_code", "event_time", "notes", "location", "source"}))

		events, err := repo.EventsForShipment(ctx, "SHP-QUIET")

		require.NoError(t, err)
		assert.NotNil(t, events)
		assert.Empty(t, events)
	})
}
