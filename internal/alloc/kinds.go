package alloc

import "github.com/qcc-project/qcc/internal/types"

const (
	gprKindMask   = types.Gpr
	fprKindMask   = types.Fpr
	gprRecordMask = types.Record
	arrayMask     = types.Array
)
