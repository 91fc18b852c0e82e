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
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.q.QueryRowContext(
		ctx, query,
		proposal.ProposerID,
		proposal.ReceiverID,
		proposal.OfferedSlotID,
		proposal.RequestedSlotID,
		proposal.Status,
		formatTime(proposal.CreatedAt),
	).Scan(&proposal.ID)
	if err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO swap_slot_claims (slot_id, proposal_id) VALUES (?, ?), (?, ?)`,
		proposal.OfferedSlotID, proposal.ID,
		proposal.RequestedSlotID, proposal.ID,
	)
	if err != nil {
		if isConstraintError(err) {
			return repository.ErrSlotClaimed
		}
		return fmt.Errorf("claim slots: %w", err)
	}

	return nil
}

// GetProposal получает предложение по ID
func (r *queries) GetProposal(ctx context.Context, id int64) (*model.SwapProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM swap_proposals WHERE id = ?`

	proposal, err := scanProposal(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get proposal by id: %w", err)
	}
	return proposal, nil
}

// LockProposal - то же, что GetProposal: транзакция SQLite уже эксклюзивна
func (r *queries) LockProposal(ctx context.Context, id int64) (*model.SwapProposal, error) {
	return r.GetProposal(ctx, id)
}

// HasPendingClaim проверяет, закреплён ли хотя бы один из слотов за pending предложением
func (r *queries) HasPendingClaim(ctx context.Context, slotIDs ...int64) (bool, error) {
	if len(slotIDs) == 0 {
		return false, nil
	}

	in, args := inClause(slotIDs)
	query := `SELECT EXISTS(SELECT 1 FROM swap_slot_claims WHERE slot_id IN (` + in + `))`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check pending claims: %w", err)
	}
	return exists, nil
}

// ResolveProposal переводит pending предложение в финальный статус и
// освобождает закреплённые слоты
func (r *queries) ResolveProposal(ctx context.Context, id int64, status model.ProposalStatus, respondedAt time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE swap_proposals SET status = ?, responded_at = ? WHERE id = ? AND status = 'pending'`,
		status, formatTime(respondedAt), id,
	)
	if err != nil {
		return fmt.Errorf("resolve proposal: %w", err)
	}
	if err := expectAffected(result, "resolve proposal"); err != nil {
		return err
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM swap_slot_claims WHERE proposal_id = ?`, id); err != nil {
		return fmt.Errorf("release slot claims: %w", err)
	}
	return nil
}

// GetProposalView получает предложение с данными участников и слотов
func (r *queries) GetProposalView(ctx context.Context, id int64) (*model.SwapProposalView, error) {
	view, err := scanProposalView(r.q.QueryRowContext(ctx, proposalViewQuery+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get proposal view: %w", err)
	}
	return view, nil
}

// ListIncomingProposals получает предложения, адресованные пользователю
func (r *queries) ListIncomingProposals(ctx context.Context, receiverID int64) ([]*model.SwapProposalView, error) {
	return r.listProposalViews(ctx, `WHERE p.receiver_id = ?`, receiverID)
}

// ListOutgoingProposals получает предложения, отправленные пользователем
func (r *queries) ListOutgoingProposals(ctx context.Context, proposerID int64) ([]*model.SwapProposalView, error) {
	return r.listProposalViews(ctx, `WHERE p.proposer_id = ?`, proposerID)
}

func (r *queries) listProposalViews(ctx context.Context, where string, userID int64) ([]*model.SwapProposalView, error) {
	query := proposalViewQuery + where + ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := r.q.QueryContext(ctx, query, userID)
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

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find slot inconsistencies: %w", err)
	}
	defer rows.Close()

	var result []*model.SlotInconsistency
	for rows.Next() {
		var (
			item   model.SlotInconsistency
			status string
		)
		if err := rows.Scan(&item.SlotID, &status, &item.PendingClaims); err != nil {
			return nil, fmt.Errorf("scan slot inconsistency: %w", err)
		}
		item.Status = model.SlotStatus(status)
		result = append(result, &item)
	}
	return result, rows.Err()
}

func scanProposal(row rowScanner) (*model.SwapProposal, error) {
	var (
		p                 model.SwapProposal
		status, createdAt string
		respondedAt       sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.ProposerID, &p.ReceiverID,
		&p.OfferedSlotID, &p.RequestedSlotID,
		&status, &createdAt, &respondedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = model.ProposalStatus(status)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.RespondedAt, err = parseNullTime(respondedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// nullSlot - столбцы слота из LEFT JOIN
type nullSlot struct {
	id                      sql.NullInt64
	title, start, end, stat sql.NullString
}

func (n *nullSlot) dest() []any {
	return []any{&n.id, &n.title, &n.start, &n.end, &n.stat}
}

func (n *nullSlot) summary() (*model.SlotSummary, error) {
	if !n.id.Valid {
		return nil, nil
	}
	s := &model.SlotSummary{
		ID:     n.id.Int64,
		Title:  n.title.String,
		Status: model.SlotStatus(n.stat.String),
	}
	var err error
	if s.StartTime, err = parseTime(n.start.String); err != nil {
		return nil, err
	}
	if s.EndTime, err = parseTime(n.end.String); err != nil {
		return nil, err
	}
	return s, nil
}

func scanProposalView(row rowScanner) (*model.SwapProposalView, error) {
	var (
		v                  model.SwapProposalView
		status, createdAt  string
		respondedAt        sql.NullString
		offered, requested nullSlot
	)
	dest := []any{
		&v.ID, &v.ProposerID, &v.ReceiverID,
		&v.OfferedSlotID, &v.RequestedSlotID,
		&status, &createdAt, &respondedAt,
		&v.ProposerName, &v.ProposerEmail, &v.ReceiverName, &v.ReceiverEmail,
	}
	dest = append(dest, offered.dest()...)
	dest = append(dest, requested.dest()...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	v.Status = model.ProposalStatus(status)
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if v.RespondedAt, err = parseNullTime(respondedAt); err != nil {
		return nil, err
	}
	if v.OfferedSlot, err = offered.summary(); err != nil {
		return nil, err
	}
	if v.RequestedSlot, err = requested.summary(); err != nil {
		return nil, err
	}
	return &v, nil
}
