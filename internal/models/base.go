package models

// IBase is implemented by every document whose _id is allocated from a counter.
type IBase interface {
	GetID() int64
	SetID(id int64)
}

// Base carries the numeric document identity.
type Base struct {
	ID int64 `bson:"_id" json:"id"`
}

func (m *Base) GetID() int64 {
	return m.ID
}

func (m *Base) SetID(id int64) {
	m.ID = id
}
