package models

import "time"

// Room is owned by exactly one admin; roommates are assigned to it.
type Room struct {
	ID        string    `json:"id" dynamodbav:"id"`
	AdminID   string    `json:"admin_id" dynamodbav:"admin_id"`
	Name      string    `json:"name" dynamodbav:"name"`
	Capacity  int       `json:"capacity" dynamodbav:"capacity"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

func (r *Room) GetPK() string {
	return "ROOM#" + r.ID
}

func (r *Room) GetSK() string {
	return "METADATA"
}

// AvailableVacancies is capacity minus approved roommates. It can be negative
// if capacity was lowered after approvals; callers treat <= 0 as full.
func (r *Room) AvailableVacancies(approved int) int {
	return r.Capacity - approved
}

// RoomListing is a room as shown on the registration page.
type RoomListing struct {
	Room
	AdminUsername string `json:"admin_username"`
	Vacancies     int    `json:"available_vacancies"`
}
