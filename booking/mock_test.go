package booking_test

import (
	"context"
	"sync"

	"concertbooking/entity"
)

type createCall struct {
	token string
	req   entity.ReservationRequest
}

type MockClient struct {
	lock sync.Mutex

	CreateCalls  []createCall
	ConfirmCalls []bool
	GetCalls     int

	create  func(call int, token string, req entity.ReservationRequest) (entity.Reservation, error)
	confirm func(id string, paymentSuccess bool) (entity.Reservation, error)
	get     func(call int, id string) (entity.Reservation, error)
	forUser func(userID string) ([]entity.Reservation, error)
}

func (m *MockClient) CreateReservation(_ context.Context, token string, req entity.ReservationRequest) (entity.Reservation, error) {
	m.lock.Lock()
	m.CreateCalls = append(m.CreateCalls, createCall{token: token, req: req})
	call := len(m.CreateCalls)
	m.lock.Unlock()

	return m.create(call, token, req)
}

func (m *MockClient) ConfirmReservation(_ context.Context, id string, paymentSuccess bool) (entity.Reservation, error) {
	m.lock.Lock()
	m.ConfirmCalls = append(m.ConfirmCalls, paymentSuccess)
	m.lock.Unlock()

	return m.confirm(id, paymentSuccess)
}

func (m *MockClient) GetReservation(_ context.Context, id string) (entity.Reservation, error) {
	m.lock.Lock()
	m.GetCalls++
	call := m.GetCalls
	m.lock.Unlock()

	return m.get(call, id)
}

func (m *MockClient) GetReservationsForUser(_ context.Context, userID string) ([]entity.Reservation, error) {
	return m.forUser(userID)
}

func (m *MockClient) createCalls() []createCall {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]createCall(nil), m.CreateCalls...)
}

func (m *MockClient) getCalls() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.GetCalls
}
