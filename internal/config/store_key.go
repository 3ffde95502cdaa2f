package config

import (
	"fmt"
)

type StoreKeyStruct struct{}

func NewStoreKeyStruct() *StoreKeyStruct {
	return &StoreKeyStruct{}
}

// CredentialsKey returns the key-value store key for a named credential slot.
// The slot distinguishes multiple logins on one machine (CLI profiles).
func (r *StoreKeyStruct) CredentialsKey(slot string) string {
	return fmt.Sprintf("credentials:%s", slot)
}

// SessionFeedChannel returns the live-feed channel name for a session.
func (r *StoreKeyStruct) SessionFeedChannel(sessionID string) string {
	return fmt.Sprintf("session:%s:feed", sessionID)
}

var StoreKey = NewStoreKeyStruct()
