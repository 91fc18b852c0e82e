package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
)

const slotColumns = `id, owner_id, title, start_time, end_time, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateSlot создаёт новый слот
func (r *queries) CreateSlot(ctx context.Context, slot *model.Slot) error {
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO slots (owner_id, title, start_time, end_time, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.q.QueryRowContext(
		ctx, query,
		slot.OwnerID,
		slot.Title,
		formatTime(slot.StartTime),
		formatTime(slot.EndTime),
		slot.Status,
		formatTime(slot.CreatedAt),
	).Scan(&slot.ID)
	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetSlot получает слот по ID
func (r *queries) GetSlot(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = ?`

	slot, err := scanSlot(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}
	return slot, nil
}

// LockSlots загружает слоты по ID. В SQLite транзакция уже держит
// блокировку на запись (BEGIN IMMEDIATE), отдельный FOR UPDATE не нужен.
func (r *queries) LockSlots(ctx context.Context, ids ...int64) (map[int64]*model.Slot, error) {
	slots := make(map[int64]*model.Slot, len(ids))
	if len(ids) == 0 {
		return slots, nil
	}

	in, args := inClause(ids)
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id IN (` + in + `) ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lock slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots[slot.ID] = slot
	}
	return slots, rows.Err()
}

// ListSlotsByOwner получает все слоты владельца, по времени начала
func (r *queries) ListSlotsByOwner(ctx context.Context, ownerID int64) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE owner_id = ?
		ORDER BY start_time, id
	`

	rows, err := r.q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get slots by owner: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// ListExchangeableSlots получает доступные для обмена слоты других пользователей
func (r *queries) ListExchangeableSlots(ctx context.Context, excludeOwnerID int64) ([]*model.MarketSlot, error) {
	query := `
		SELECT s.id, s.owner_id, s.title, s.start_time, s.end_time, s.status, s.created_at,
		       u.name, u.email
		FROM slots s
		JOIN users u ON u.id = s.owner_id
		WHERE s.status = 'exchangeable' AND s.owner_id <> ?
		ORDER BY s.start_time, s.id
	`

	rows, err := r.q.QueryContext(ctx, query, excludeOwnerID)
	if err != nil {
		return nil, fmt.Errorf("get exchangeable slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.MarketSlot
	for rows.Next() {
		var ms model.MarketSlot
		var start, end, created, status string
		err := rows.Scan(
			&ms.ID, &ms.OwnerID, &ms.Title, &start, &end, &status, &created,
			&ms.OwnerName, &ms.OwnerEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan exchangeable slot: %w", err)
		}
		ms.Status = model.SlotStatus(status)
		if err := fillSlotTimes(&ms.Slot, start, end, created); err != nil {
			return nil, err
		}
		slots = append(slots, &ms)
	}
	return slots, rows.Err()
}

// UpdateSlot сохраняет title, время и статус слота
func (r *queries) UpdateSlot(ctx context.Context, slot *model.Slot) error {
	query := `
		UPDATE slots
		SET title = ?, start_time = ?, end_time = ?, status = ?
		WHERE id = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		slot.Title,
		formatTime(slot.StartTime),
		formatTime(slot.EndTime),
		slot.Status,
		slot.ID,
	)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	return expectAffected(result, "update slot")
}

// SetSlotStatusAndOwner меняет статус и владельца слота
func (r *queries) SetSlotStatusAndOwner(ctx context.Context, id int64, status model.SlotStatus, ownerID int64) error {
	query := `UPDATE slots SET status = ?, owner_id = ? WHERE id = ?`

	result, err := r.q.ExecContext(ctx, query, status, ownerID, id)
	if err != nil {
		return fmt.Errorf("set slot status and owner: %w", err)
	}
	return expectAffected(result, "set slot status and owner")
}

// DeleteSlot удаляет слот
func (r *queries) DeleteSlot(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return expectAffected(result, "delete slot")
}

func scanSlot(row rowScanner) (*model.Slot, error) {
	var slot model.Slot
	var start, end, created, status string
	err := row.Scan(&slot.ID, &slot.OwnerID, &slot.Title, &start, &end, &status, &created)
	if err != nil {
		return nil, err
	}
	slot.Status = model.SlotStatus(status)
	if err := fillSlotTimes(&slot, start, end, created); err != nil {
		return nil, err
	}
	return &slot, nil
}

func fillSlotTimes(slot *model.Slot, start, end, created string) error {
	var err error
	if slot.StartTime, err = parseTime(start); err != nil {
		return err
	}
	if slot.EndTime, err = parseTime(end); err != nil {
		return err
	}
	if slot.CreatedAt, err = parseTime(created); err != nil {
		return err
	}
	return nil
}

func expectAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNoRows)
	}
	return nil
}
