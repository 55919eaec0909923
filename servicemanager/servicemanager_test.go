package servicemanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantString(t *testing.T) {
	cases := map[Variant]string{
		Legacy: "legacy",
		AIDL2:  "aidl2",
		AIDL3:  "aidl3",
		AIDL4:  "aidl4",
		HIDL:   "hidl",
	}
	for variant, want := range cases {
		assert.Equal(t, want, variant.String())
	}
	assert.Equal(t, "unknown", Variant(99).String())
}

func TestAddServiceTailFieldsLegacy(t *testing.T) {
	assert.Nil(t, addServiceTailFields(Legacy))
}

func TestAddServiceTailFieldsAidl2(t *testing.T) {
	assert.Equal(t, []int32{0}, addServiceTailFields(AIDL2))
}

func TestAddServiceTailFieldsAidl3(t *testing.T) {
	assert.Equal(t, []int32{0, dumpFlagPriorityDefault}, addServiceTailFields(AIDL3))
}

func TestAddServiceTailFieldsAidl4(t *testing.T) {
	fields := addServiceTailFields(AIDL4)
	if assert.Len(t, fields, 3) {
		assert.Equal(t, stabilityCategory(systemStability, binderWireFormatVersion), fields[0])
		assert.Equal(t, int32(0), fields[1])
		assert.Equal(t, int32(dumpFlagPriorityDefault), fields[2])
	}
}

func TestStabilityCategoryPacksVersionAndLevel(t *testing.T) {
	got := stabilityCategory(systemStability, binderWireFormatVersion)
	assert.Equal(t, byte(binderWireFormatVersion), byte(got))
	assert.Equal(t, byte(systemStability), byte(got>>24))
}

func TestTransactionCodesAreSequential(t *testing.T) {
	assert.Equal(t, getServiceTransaction+1, checkServiceTransaction)
	assert.Equal(t, checkServiceTransaction+1, addServiceTransaction)
	assert.Equal(t, addServiceTransaction+1, listServicesTransaction)
}

func TestDumpFlagPriorityAllIncludesDefault(t *testing.T) {
	assert.Equal(t, dumpFlagPriorityDefault, dumpFlagPriorityAll&dumpFlagPriorityDefault)
	assert.NotEqual(t, dumpFlagPriorityDefault, dumpFlagPriorityAll)
}

func TestParseVariant(t *testing.T) {
	cases := map[string]Variant{
		"":       Legacy,
		"legacy": Legacy,
		"aidl2":  AIDL2,
		"aidl3":  AIDL3,
		"aidl4":  AIDL4,
		"hidl":   HIDL,
	}
	for name, want := range cases {
		got, err := ParseVariant(name)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseVariant("bogus")
	assert.Error(t, err)
}

func TestHidlTransactionCodesAreSequential(t *testing.T) {
	assert.Equal(t, hidlGetTransaction+1, hidlAddTransaction)
	assert.Equal(t, hidlAddTransaction+1, hidlListTransaction)
	assert.Equal(t, hidlListTransaction+1, hidlListByInterfaceTransaction)
	assert.Equal(t, hidlListByInterfaceTransaction+1, hidlRegisterForNotificationsTransaction)
}
