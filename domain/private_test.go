package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPrivateRoomID_Order_Independent(t *testing.T) {
	req := require.New(t)
	userA := uuid.NewString()
	userB := uuid.NewString()

	// The canonical id must not depend on who initiates the exchange
	req.Equal(PrivateRoomID(userA, userB), PrivateRoomID(userB, userA))
	req.Contains(PrivateRoomID(userA, userB), "_private_")
}

func TestPrivateRoomID_Distinct_Pairs(t *testing.T) {
	req := require.New(t)
	userA := uuid.NewString()
	userB := uuid.NewString()
	userC := uuid.NewString()

	req.NotEqual(PrivateRoomID(userA, userB), PrivateRoomID(userA, userC))
}
