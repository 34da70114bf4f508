package model

import (
	"time"

	"github.com/google/uuid"
)

// Currency is a reference currency owned by the directory.
type Currency struct {
	ID     uuid.UUID `db:"id" json:"id"`
	Code   string    `db:"code" json:"code"`
	Name   string    `db:"name" json:"name"`
	Symbol string    `db:"symbol" json:"symbol"`
}

type City struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// Office is an exchange office. City is populated when loaded with a join.
type Office struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"office_name" json:"officeName"`
	CityID    uuid.UUID `db:"city_id" json:"cityId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	City      *City     `db:"-" json:"city,omitempty"`
}
