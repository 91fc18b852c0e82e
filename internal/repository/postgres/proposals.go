package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
)

const proposalColumns = `id, proposer_id, receiver_id, COALESCE(offered_slot_id, 0), COALESCE(requested_slot_id, 0), status, created_at, responded_at`

const proposalViewQuery = `
	SELECT p.id, p.proposer_id, p.receiver_id,
	       COALESCE(p.offered_slot_id, 0), COALESCE(p.requested_slot_id, 0),
	       p.status, p.created_at, p.responded_at,
	       pu.name, pu.email, ru.name, ru.email,
	       os.id, os.title, os.start_time, os.end_time, os.status,
	       rs.id, rs.title, rs.start_time, rs.end_time, rs.status
	FROM swap_proposals p
	JOIN users pu ON pu.id = p.proposer_id
	JOIN users ru ON ru.id = p.receiver_id
	LEFT JOIN slots os ON os.id = p.offered_slot_id
	LEFT JOIN slots rs ON rs.id = p.requested_slot_id
`

// CreateProposal создаёт pending предложение и закрепляет за ним оба слота.
// Если хотя бы один слот уже закреплён, возвращает repository.ErrSlotClaimed.
// Должен вызываться внутри транзакции.
func (r *queries) CreateProposal(ctx context.Context, proposal *model.SwapProposal) error {
	if proposal.CreatedAt.IsZero() {
		proposal.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO swap_proposals (proposer_id, receiver_id, offered_slot_id, requested_slot_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(
		ctx, query,
		proposal.ProposerID,
		proposal.ReceiverID,
		proposal.OfferedSlotID,
		proposal.RequestedSlotID,
		proposal.Status,
		proposal.CreatedAt,
	).Scan(&proposal.ID)
	if err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO swap_slot_claims (slot_id, proposal_id) VALUES ($1, $3), ($2, $3)`,
		proposal.OfferedSlotID, proposal.RequestedSlotID, proposal.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrSlotClaimed
		}
		return fmt.Errorf("claim slots: %w", err)
	}

	return nil
}

// GetProposal получает предложение по ID
func (r *queries) GetProposal(ctx context.Context, id int64) (*model.SwapProposal, error) {
	return r.getProposal(ctx, `SELECT `+proposalColumns+` FROM swap_proposals WHERE id = $1`, id)
}

// LockProposal получает предложение и блокирует его строку до конца транзакции
func (r *queries) LockProposal(ctx context.Context, id int64) (*model.SwapProposal, error) {
	return r.getProposal(ctx, `SELECT `+proposalColumns+` FROM swap_proposals WHERE id = $1 FOR UPDATE`, id)
}

func (r *queries) getProposal(ctx context.Context, query string, id int64) (*model.SwapProposal, error) {
	var p model.SwapProposal
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.ProposerID,
		&p.ReceiverID,
		&p.OfferedSlotID,
		&p.RequestedSlotID,
		&p.Status,
		&p.CreatedAt,
		&p.RespondedAt,
	)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get proposal by id: %w", err)
	}
	return &p, nil
}

// HasPendingClaim проверяет, закреплён ли хотя бы один из слотов за pending предложением
func (r *queries) HasPendingClaim(ctx context.Context, slotIDs ...int64) (bool, error) {
	if len(slotIDs) == 0 {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM swap_slot_claims WHERE slot_id = ANY($1))`,
		slotIDs,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending claims: %w", err)
	}
	return exists, nil
}

// ResolveProposal переводит pending предложение в финальный статус и
// освобождает закреплённые слоты
func (r *queries) ResolveProposal(ctx context.Context, id int64, status model.ProposalStatus, respondedAt time.Time) error {
	err := r.execAffected(ctx, "resolve proposal",
		`UPDATE swap_proposals SET status = $1, responded_at = $2 WHERE id = $3 AND status = 'pending'`,
		status, respondedAt, id,
	)
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM swap_slot_claims WHERE proposal_id = $1`, id); err != nil {
		return fmt.Errorf("release slot claims: %w", err)
	}
	return nil
}

// GetProposalView получает предложение с данными участников и слотов
func (r *queries) GetProposalView(ctx context.Context, id int64) (*model.SwapProposalView, error) {
	view, err := scanProposalView(r.db.QueryRow(ctx, proposalViewQuery+` WHERE p.id = $1`, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get proposal view: %w", err)
	}
	return view, nil
}

// ListIncomingProposals получает предложения, адресованные пользователю
func (r *queries) ListIncomingProposals(ctx context.Context, receiverID int64) ([]*model.SwapProposalView, error) {
	return r.listProposalViews(ctx, `WHERE p.receiver_id = $1`, receiverID)
}

// ListOutgoingProposals получает предложения, отправленные пользователем
func (r *queries) ListOutgoingProposals(ctx context.Context, proposerID int64) ([]*model.SwapProposalView, error) {
	return r.listProposalViews(ctx, `WHERE p.proposer_id = $1`, proposerID)
}

func (r *queries) listProposalViews(ctx context.Context, where string, userID int64) ([]*model.SwapProposalView, error) {
	rows, err := r.db.Query(ctx, proposalViewQuery+where+` ORDER BY p.created_at DESC, p.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var views []*model.SwapProposalView
	for rows.Next() {
		view, err := scanProposalView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

// FindSlotInconsistencies ищет слоты, у которых статус SwapLocked не совпадает
// с наличием ровно одного pending предложения
func (r *queries) FindSlotInconsistencies(ctx context.Context) ([]*model.SlotInconsistency, error) {
	query := `
		SELECT s.id, s.status, COUNT(p.id)
		FROM slots s
		LEFT JOIN swap_slot_claims c ON c.slot_id = s.id
		LEFT JOIN swap_proposals p ON p.id = c.proposal_id AND p.status = 'pending'
		GROUP BY s.id, s.status
		HAVING (s.status = 'swap_locked' AND COUNT(p.id) <> 1)
		    OR (s.status <> 'swap_locked' AND COUNT(p.id) > 0)
		ORDER BY s.id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find slot inconsistencies: %w", err)
	}
	defer rows.Close()

	var result []*model.SlotInconsistency
	for rows.Next() {
		var item model.SlotInconsistency
		if err := rows.Scan(&item.SlotID, &item.Status, &item.PendingClaims); err != nil {
			return nil, fmt.Errorf("scan slot inconsistency: %w", err)
		}
		result = append(result, &item)
	}
	return result, rows.Err()
}

// nullSlot - столбцы слота из LEFT JOIN
type nullSlot struct {
	id         *int64
	title      *string
	start, end *time.Time
	status     *model.SlotStatus
}

func (n *nullSlot) dest() []any {
	return []any{&n.id, &n.title, &n.start, &n.end, &n.status}
}

func (n *nullSlot) summary() *model.SlotSummary {
	if n.id == nil {
		return nil
	}
	return &model.SlotSummary{
		ID:        *n.id,
		Title:     *n.title,
		StartTime: *n.start,
		EndTime:   *n.end,
		Status:    *n.status,
	}
}

func scanProposalView(row pgx.Row) (*model.SwapProposalView, error) {
	var (
		v                  model.SwapProposalView
		offered, requested nullSlot
	)
	dest := []any{
		&v.ID, &v.ProposerID, &v.ReceiverID,
		&v.OfferedSlotID, &v.RequestedSlotID,
		&v.Status, &v.CreatedAt, &v.RespondedAt,
		&v.ProposerName, &v.ProposerEmail, &v.ReceiverName, &v.ReceiverEmail,
	}
	dest = append(dest, offered.dest()...)
	dest = append(dest, requested.dest()...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	v.OfferedSlot = offered.summary()
	v.RequestedSlot = requested.summary()
	return &v, nil
}
