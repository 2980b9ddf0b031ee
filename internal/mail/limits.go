package mail

import "github.com/dicklesworth/agentmail/internal/types"

// SizeLimits are the configurable per-field and total byte ceilings. A
// limit of 0 means "unlimited" throughout.
type SizeLimits struct {
	MaxSubjectBytes    int64
	MaxBodyBytes       int64
	MaxAttachmentBytes int64
	MaxTotalBytes      int64
}

// SizeViolation describes one field that failed a size gate, in the exact
// shape the wire error's `data` carries.
type SizeViolation struct {
	Field      string
	SizeBytes  int64
	LimitBytes int64
}

// saturatingAdd adds b to a, clamping to math.MaxInt64 instead of
// overflowing, so no combination of field sizes can wrap around to a
// small value and slip past the total-size gate.
func saturatingAdd(a, b int64) int64 {
	if a > 0 && b > 0 && a > (1<<63-1)-b {
		return 1<<63 - 1
	}
	sum := a + b
	if sum < a {
		return 1<<63 - 1
	}
	return sum
}

// ValidateSizeLimits checks subject/body/attachment/total byte limits,
// returning the first field that exceeds its configured ceiling along
// with the accumulated total, so callers can report `size_bytes` even
// when the violation is on the total rather than a single field.
func ValidateSizeLimits(limits SizeLimits, subject, body string, attachments []types.Attachment) (*SizeViolation, int64) {
	subjectBytes := int64(len(subject))
	bodyBytes := int64(len(body))

	if limits.MaxSubjectBytes > 0 && subjectBytes > limits.MaxSubjectBytes {
		return &SizeViolation{Field: "subject", SizeBytes: subjectBytes, LimitBytes: limits.MaxSubjectBytes}, subjectBytes
	}
	if limits.MaxBodyBytes > 0 && bodyBytes > limits.MaxBodyBytes {
		return &SizeViolation{Field: "body_md", SizeBytes: bodyBytes, LimitBytes: limits.MaxBodyBytes}, bodyBytes
	}

	total := saturatingAdd(subjectBytes, bodyBytes)
	for _, a := range attachments {
		if limits.MaxAttachmentBytes > 0 && a.Bytes > limits.MaxAttachmentBytes {
			return &SizeViolation{Field: "attachment:" + a.Name, SizeBytes: a.Bytes, LimitBytes: limits.MaxAttachmentBytes}, total
		}
		total = saturatingAdd(total, a.Bytes)
	}

	if limits.MaxTotalBytes > 0 && total > limits.MaxTotalBytes {
		return &SizeViolation{Field: "total", SizeBytes: total, LimitBytes: limits.MaxTotalBytes}, total
	}

	return nil, total
}

// ValidateReplyBodyLimit is reply_message's body-only size gate: a
// reply enforces a body-only size limit and carries no attachments.
func ValidateReplyBodyLimit(maxBodyBytes int64, body string) *SizeViolation {
	bodyBytes := int64(len(body))
	if maxBodyBytes > 0 && bodyBytes > maxBodyBytes {
		return &SizeViolation{Field: "body_md", SizeBytes: bodyBytes, LimitBytes: maxBodyBytes}
	}
	return nil
}

// HasAnyRecipients reports whether to/cc/bcc collectively name at least
// one recipient.
func HasAnyRecipients(to, cc, bcc []string) bool {
	return len(to) > 0 || len(cc) > 0 || len(bcc) > 0
}
