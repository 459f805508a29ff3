// File: internal/uring/consts.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// io_uring ABI constants. Values mirror <linux/io_uring.h>.

//go:build linux

package uring

// Opcodes.
const (
	OpNop uint8 = iota
	OpReadv
	OpWritev
	OpFsync
	OpReadFixed
	OpWriteFixed
	OpPollAdd
	OpPollRemove
	OpSyncFileRange
	OpSendmsg
	OpRecvmsg
	OpTimeout
	OpTimeoutRemove
	OpAccept
	OpAsyncCancel
	OpLinkTimeout
	OpConnect
	OpFallocate
	OpOpenat
	OpClose
	OpFilesUpdate
	OpStatx
	OpRead
	OpWrite
	OpFadvise
	OpMadvise
	OpSend
	OpRecv
	OpOpenat2
	OpEpollCtl
	OpSplice
	OpProvideBuffers
	OpRemoveBuffers
	OpTee
	OpShutdown
	OpRenameat
	OpUnlinkat
)

// Submission queue entry flags.
const (
	SqeFixedFile uint8 = 1 << iota
	SqeIoDrain
	SqeIoLink
	SqeIoHardlink
	SqeAsync
	SqeBufferSelect
)

// Setup flags.
const (
	SetupIopoll uint32 = 1 << iota
	SetupSqpoll
	SetupSqAff
	SetupCqsize
	SetupClamp
	SetupAttachWq
)

// Timeout flags.
const TimeoutAbs uint32 = 1 << 0

// SQ ring flags.
const (
	SqNeedWakeup uint32 = 1 << iota
	SqCqOverflow
)

// Enter flags.
const (
	EnterGetevents uint32 = 1 << iota
	EnterSqWakeup
)

// Feature flags reported by the kernel at setup time.
const (
	FeatSingleMmap uint32 = 1 << iota
	FeatNoDrop
	FeatSubmitStable
	FeatRwCurPos
	FeatCurPersonality
	FeatFastPoll
	FeatPoll32Bits
	FeatSqpollNonfixed
)

// mmap offsets.
const (
	offSqRing int64 = 0
	offCqRing int64 = 0x8000000
	offSqes   int64 = 0x10000000
)
