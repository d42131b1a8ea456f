package util

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

// 错误信息会直接出现在响应的 message 字段中，统一使用英文
func TestSentinelErrorsAreEnglish(t *testing.T) {
	for _, err := range []error{
		ErrUserNotFound, ErrEmailRegistered, ErrInvalidCredentials, ErrAccountDisabled, ErrPermissionDenied,
		ErrModuleNotFound, ErrModuleLocked, ErrModuleExists, ErrModuleReferenced, ErrNoContent,
		ErrUnknownModule, ErrInvalidModule, ErrCheckpointNotFound, ErrCheckpointLocked, ErrCheckpointExists,
		ErrCheckpointPassed, ErrInvalidCheckpoint, ErrInvalidScoreRecord, ErrSessionNotFound, ErrSessionExpired,
	} {
		msg := err.Error()
		assert.NotEmpty(t, msg)
		for _, r := range msg {
			if r > unicode.MaxASCII {
				t.Errorf("error %q contains non-ASCII text", msg)
				break
			}
		}
	}
}
