package history

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgLog struct {
	pool *pgxpool.Pool
}

func NewPgLog(pool *pgxpool.Pool) *PgLog {
	return &PgLog{pool: pool}
}

func (l *PgLog) Append(ctx context.Context, e Entry) {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := l.pool.Exec(ctx, `
		INSERT INTO message_log (ts, patient_id, appointment_id, campaign_key, channel, status, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ts, e.PatientID, e.AppointmentID, e.CampaignKey, e.Channel, e.Status, e.Detail)
	if err != nil {
		log.Printf("failed to append message log entry appointment=%s key=%s: %v", e.AppointmentID, e.CampaignKey, err)
	}
}

func (l *PgLog) QueryGlobal(ctx context.Context, f Filters, limit, offset int) ([]Entry, error) {
	limit, offset = clampPage(limit, offset)

	rows, err := l.pool.Query(ctx, `
		SELECT id, ts, patient_id, appointment_id, campaign_key, channel, status, detail
		FROM message_log
		WHERE ($1 = '' OR campaign_key = $1)
		  AND ($2 = '' OR channel = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY ts DESC, id DESC
		LIMIT $4 OFFSET $5
	`, f.CampaignKey, f.Channel, f.Status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query global history: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (l *PgLog) QueryForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Entry, error) {
	limit, offset = clampPage(limit, offset)

	rows, err := l.pool.Query(ctx, `
		SELECT id, ts, patient_id, appointment_id, campaign_key, channel, status, detail
		FROM message_log
		WHERE patient_id = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query patient history: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// Purge drops entries beyond the retention window. Eviction is routine, not
// an error condition.
func (l *PgLog) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := l.pool.Exec(ctx, `
		DELETE FROM message_log
		WHERE ts < $1
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("purge message log: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	var result []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.PatientID,
			&e.AppointmentID,
			&e.CampaignKey,
			&e.Channel,
			&e.Status,
			&e.Detail,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
