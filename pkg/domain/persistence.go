package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateSpecialty(Specialty) (Specialty, error)
	UpdateSpecialty(id string, mutator func(*Specialty) error) (Specialty, error)
	DeleteSpecialty(id string) error
	CreateDoctor(Doctor) (Doctor, error)
	UpdateDoctor(id string, mutator func(*Doctor) error) (Doctor, error)
	DeleteDoctor(id string) error
	CreateShift(Shift) (Shift, error)
	UpdateShift(id string, mutator func(*Shift) error) (Shift, error)
	DeleteShift(id string) error
	CreateEncounter(Encounter) (Encounter, error)
	UpdateEncounter(id string, mutator func(*Encounter) error) (Encounter, error)
	DeleteEncounter(id string) error
	CreateUser(User) (User, error)
	UpdateUser(id string, mutator func(*User) error) (User, error)
	DeleteUser(id string) error
	FindSpecialty(id string) (Specialty, bool)
	FindDoctor(id string) (Doctor, bool)
	FindShift(id string) (Shift, bool)
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetSpecialty(id string) (Specialty, bool)
	ListSpecialties() []Specialty
	GetDoctor(id string) (Doctor, bool)
	ListDoctors() []Doctor
	GetShift(id string) (Shift, bool)
	ListShifts() []Shift
	GetEncounter(id string) (Encounter, bool)
	ListEncounters() []Encounter
	GetUser(id string) (User, bool)
	FindUserByUsername(username string) (User, bool)
	ListUsers() []User
}
