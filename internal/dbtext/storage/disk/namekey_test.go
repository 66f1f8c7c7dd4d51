package disk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameKeyRoundTrip(t *testing.T) {
	for _, name := range []string{"users", "a", "Order-Items", "customers_tbl01"} {
		key := EncodeName(name)
		assert.Equal(t, name, DecodeName(key))
	}
}

func TestValidateNameRejectsTrailingUnderscore(t *testing.T) {
	assert.Error(t, ValidateName("bad_", 16, ""))
}

func TestValidateNameRejectsAllDashes(t *testing.T) {
	assert.Error(t, ValidateName("---", 16, ""))
}

func TestValidateNameRejectsOverLength(t *testing.T) {
	assert.Error(t, ValidateName("averylongidentifiername", 16, ""))
}

func TestValidateNameAllowsAdditionalChars(t *testing.T) {
	assert.NoError(t, ValidateName("col.name", 16, "."))
	assert.Error(t, ValidateName("col.name", 16, ""))
}

func TestFreelistClaimBestFit(t *testing.T) {
	inventory := []freeSpaceRecord{}
	inventory = addFree(inventory, 0, 10)
	inventory = addFree(inventory, 100, 50)
	inventory = addFree(inventory, 200, 20)

	remaining, claimed := claimFree(inventory, 15)
	if assert.NotNil(t, claimed) {
		assert.Equal(t, uint16(15), claimed.Length)
		assert.Equal(t, uint64(200), claimed.Offset)
	}
	assert.Len(t, remaining, 3)
}
