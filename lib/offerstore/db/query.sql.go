package db

import (
	"context"
	"database/sql"
)

const createOffer = `-- name: CreateOffer :one
insert into offers(area, discount, price, description)
values (?, ?, ?, ?)
returning id, time
`

type CreateOfferParams struct {
	Area        sql.NullString
	Discount    sql.NullString
	Price       sql.NullString
	Description sql.NullString
}

type CreateOfferRow struct {
	ID   int64
	Time interface{}
}

func (q *Queries) CreateOffer(ctx context.Context, arg CreateOfferParams) (CreateOfferRow, error) {
	row := q.db.QueryRowContext(ctx, createOffer,
		arg.Area,
		arg.Discount,
		arg.Price,
		arg.Description,
	)
	var i CreateOfferRow
	err := row.Scan(&i.ID, &i.Time)
	return i, err
}

const getOffer = `-- name: GetOffer :one
select id, area, discount, price, description, time from offers
where id = ?
`

func (q *Queries) GetOffer(ctx context.Context, id int64) (Offer, error) {
	row := q.db.QueryRowContext(ctx, getOffer, id)
	var i Offer
	err := row.Scan(
		&i.ID,
		&i.Area,
		&i.Discount,
		&i.Price,
		&i.Description,
		&i.Time,
	)
	return i, err
}

const listOffers = `-- name: ListOffers :many
select id, area, discount, price, description, time from offers
order by id desc
limit ?
`

func (q *Queries) ListOffers(ctx context.Context, limit int64) ([]Offer, error) {
	rows, err := q.db.QueryContext(ctx, listOffers, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Offer
	for rows.Next() {
		var i Offer
		if err := rows.Scan(
			&i.ID,
			&i.Area,
			&i.Discount,
			&i.Price,
			&i.Description,
			&i.Time,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countOffers = `-- name: CountOffers :one
select count(*) from offers
`

func (q *Queries) CountOffers(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countOffers)
	var count int64
	err := row.Scan(&count)
	return count, err
}
