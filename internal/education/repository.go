package education

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/adherence/intervention"
	"github.com/JaimeStill/adherence/pkg/pagination"
	"github.com/JaimeStill/adherence/pkg/query"
	"github.com/JaimeStill/adherence/pkg/repository"
)

const returning = "RETURNING id, name, topic, content, description, active"

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an education repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "education"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Content], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Description")

	filters.Apply(qb)

	result, err := repository.QueryPage(ctx, r.db, qb, page, "education contents", scanContent)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Content, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanContent)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Content, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO education_contents(name, topic, content, description)
		VALUES ($1, $2, $3, $4)
		` + returning

	args := []any{cmd.Name, cmd.Topic, cmd.Text, cmd.Description}

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Content, error) {
		return repository.QueryOne(ctx, tx, q, args, scanContent)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("education content created", "id", c.ID, "name", c.Name, "topic", c.Topic)
	return &c, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Content, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q := `
		UPDATE education_contents
		SET name = $1, topic = $2, content = $3, description = $4
		WHERE id = $5
		` + returning

	args := []any{cmd.Name, cmd.Topic, cmd.Text, cmd.Description, id}

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Content, error) {
		current, err := r.find(ctx, tx, id)
		if err != nil {
			return Content{}, err
		}
		// moving an active override to another topic would leave two active
		if current.Active && current.Topic != cmd.Topic {
			if err := deactivateTopic(ctx, tx, cmd.Topic); err != nil {
				return Content{}, err
			}
		}
		return repository.QueryOne(ctx, tx, q, args, scanContent)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("education content updated", "id", c.ID, "name", c.Name)
	return &c, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM education_contents WHERE id = $1",
			id,
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("education content deleted", "id", id)
	return nil
}

func (r *repo) Activate(ctx context.Context, id uuid.UUID) (*Content, error) {
	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Content, error) {
		target, err := r.find(ctx, tx, id)
		if err != nil {
			return Content{}, err
		}

		if err := deactivateTopic(ctx, tx, target.Topic); err != nil {
			return Content{}, err
		}

		q := "UPDATE education_contents SET active = true WHERE id = $1 " + returning
		return repository.QueryOne(ctx, tx, q, []any{id}, scanContent)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("education content activated", "id", c.ID, "name", c.Name, "topic", c.Topic)
	return &c, nil
}

func (r *repo) Deactivate(ctx context.Context, id uuid.UUID) (*Content, error) {
	q := "UPDATE education_contents SET active = false WHERE id = $1 " + returning

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Content, error) {
		return repository.QueryOne(ctx, tx, q, []any{id}, scanContent)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("education content deactivated", "id", c.ID, "name", c.Name, "topic", c.Topic)
	return &c, nil
}

func (r *repo) Content(ctx context.Context, topic intervention.Topic) (string, error) {
	key, err := ParseTopic(topic.Key())
	if err != nil {
		return "", err
	}

	active := true
	qb := query.NewBuilder(projection).
		WhereEquals("Topic", key).
		WhereEquals("Active", active)

	q, args := qb.BuildFirst()
	c, err := repository.QueryOne(ctx, r.db, q, args, scanContent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Default(key)
		}
		return "", fmt.Errorf("query active %s content: %w", key, err)
	}

	return c.Text, nil
}

func (r *repo) find(ctx context.Context, q repository.Querier, id uuid.UUID) (Content, error) {
	stmt, args := query.NewBuilder(projection).BuildSingle("ID", id)
	return repository.QueryOne(ctx, q, stmt, args, scanContent)
}

func deactivateTopic(ctx context.Context, tx *sql.Tx, topic Topic) error {
	_, err := tx.ExecContext(
		ctx,
		"UPDATE education_contents SET active = false WHERE topic = $1 AND active = true",
		topic,
	)
	if err != nil {
		return fmt.Errorf("deactivate %s content: %w", topic, err)
	}
	return nil
}
