package model

// FlagKind identifies a machine-assigned data-quality or anomaly marker
// attached to a transaction, distinct from a user-assigned category.
type FlagKind string

// Flag kind constants.
const (
	FlagIncomplete    FlagKind = "incomplete"
	FlagDuplicate     FlagKind = "duplicate"
	FlagUnusualAmount FlagKind = "unusual_amount"
	FlagUncategorized FlagKind = "uncategorized"
)

// ValidFlagKind reports whether k is one of the known flag kinds.
func ValidFlagKind(k FlagKind) bool {
	switch k {
	case FlagIncomplete, FlagDuplicate, FlagUnusualAmount, FlagUncategorized:
		return true
	}
	return false
}
