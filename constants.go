package binder

import "github.com/kbinder/go-binder/internal/uapi"

// Re-exported wire-protocol constants for public API consumers that need
// to name a built-in transaction code or a default device path without
// reaching into an internal package.
const (
	DefaultBinderDevice   = uapi.DefaultBinderDevice
	DefaultHwBinderDevice = uapi.DefaultHwBinderDevice

	FirstCallTransaction = uapi.FIRST_CALL_TRANSACTION
	LastCallTransaction  = uapi.LAST_CALL_TRANSACTION
)

var (
	AidlPingTransaction      = uapi.AIDL_PING_TRANSACTION
	AidlInterfaceTransaction = uapi.AIDL_INTERFACE_TRANSACTION
	AidlDumpTransaction      = uapi.AIDL_DUMP_TRANSACTION
	AidlSyspropsTransaction  = uapi.AIDL_SYSPROPS_TRANSACTION
)

const (
	HidlPingTransaction             = uapi.HIDL_PING_TRANSACTION
	HidlGetDescriptorTransaction    = uapi.HIDL_GET_DESCRIPTOR_TRANSACTION
	HidlDescriptorChainTransaction  = uapi.HIDL_DESCRIPTOR_CHAIN_TRANSACTION
)

// Transaction flags (spec.md §9's Io trait operand set).
const (
	TransactionFlagOneWay     = uapi.TF_ONE_WAY
	TransactionFlagRootObject = uapi.TF_ROOT_OBJECT
	TransactionFlagStatusCode = uapi.TF_STATUS_CODE
	TransactionFlagAcceptFds  = uapi.TF_ACCEPT_FDS
)
