package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/slotswap/internal/model"
)

const slotColumns = `id, owner_id, title, start_time, end_time, status, created_at`

// CreateSlot создаёт новый слот
func (r *queries) CreateSlot(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (owner_id, title, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		slot.OwnerID,
		slot.Title,
		slot.StartTime,
		slot.EndTime,
		slot.Status,
	).Scan(&slot.ID, &slot.CreatedAt)
	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetSlot получает слот по ID
func (r *queries) GetSlot(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}
	return slot, nil
}

// LockSlots загружает слоты и блокирует их строки до конца транзакции
func (r *queries) LockSlots(ctx context.Context, ids ...int64) (map[int64]*model.Slot, error) {
	slots := make(map[int64]*model.Slot, len(ids))
	if len(ids) == 0 {
		return slots, nil
	}

	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := r.db.Query(ctx, query, ids)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock slots: %w", err)
	}
	return slots, nil
}

// ListSlotsByOwner получает все слоты владельца, по времени начала
func (r *queries) ListSlotsByOwner(ctx context.Context, ownerID int64) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE owner_id = $1
		ORDER BY start_time, id
	`

	rows, err := r.db.Query(ctx, query, ownerID)
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
		WHERE s.status = 'exchangeable' AND s.owner_id <> $1
		ORDER BY s.start_time, s.id
	`

	rows, err := r.db.Query(ctx, query, excludeOwnerID)
	if err != nil {
		return nil, fmt.Errorf("get exchangeable slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.MarketSlot
	for rows.Next() {
		var ms model.MarketSlot
		err := rows.Scan(
			&ms.ID,
			&ms.OwnerID,
			&ms.Title,
			&ms.StartTime,
			&ms.EndTime,
			&ms.Status,
			&ms.CreatedAt,
			&ms.OwnerName,
			&ms.OwnerEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan exchangeable slot: %w", err)
		}
		slots = append(slots, &ms)
	}
	return slots, rows.Err()
}

// UpdateSlot сохраняет title, время и статус слота
func (r *queries) UpdateSlot(ctx context.Context, slot *model.Slot) error {
	query := `
		UPDATE slots
		SET title = $1, start_time = $2, end_time = $3, status = $4
		WHERE id = $5
	`
	return r.execAffected(ctx, "update slot", query,
		slot.Title, slot.StartTime, slot.EndTime, slot.Status, slot.ID)
}

// SetSlotStatusAndOwner меняет статус и владельца слота
func (r *queries) SetSlotStatusAndOwner(ctx context.Context, id int64, status model.SlotStatus, ownerID int64) error {
	query := `UPDATE slots SET status = $1, owner_id = $2 WHERE id = $3`
	return r.execAffected(ctx, "set slot status and owner", query, status, ownerID, id)
}

// DeleteSlot удаляет слот
func (r *queries) DeleteSlot(ctx context.Context, id int64) error {
	return r.execAffected(ctx, "delete slot", `DELETE FROM slots WHERE id = $1`, id)
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.OwnerID,
		&slot.Title,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Status,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
