package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/asysbus/asb-go/pkg/version"
	"github.com/asysbus/asb-go/pkg/wire"
)

// TXTRecordMap holds decoded key=value TXT records.
type TXTRecordMap map[string]string

// EncodeNodeTXT builds the TXT records for a gateway.
func EncodeNodeTXT(info *NodeInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyNodeID:  fmt.Sprintf("%03X", info.NodeID),
		TXTKeyVersion: ProtocolVersion,
	}
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	return txt
}

// DecodeNodeTXT parses gateway TXT records. Gateways with another major
// protocol version are rejected. The port is not part of the TXT data and
// is left zero.
func DecodeNodeTXT(txt TXTRecordMap) (*NodeInfo, string, error) {
	raw, ok := txt[TXTKeyNodeID]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyNodeID)
	}
	id, err := strconv.ParseUint(raw, 16, 16)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyNodeID, raw)
	}
	if !wire.ValidNodeID(uint16(id)) {
		return nil, "", fmt.Errorf("%w: 0x%X", ErrInvalidNodeID, id)
	}

	ver, ok := txt[TXTKeyVersion]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	if !version.Supported(ver) {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedVersion, ver)
	}

	return &NodeInfo{NodeID: uint16(id), Name: txt[TXTKeyName]}, ver, nil
}

// InstanceName returns the DNS-SD instance name for a gateway.
func InstanceName(info *NodeInfo) string {
	if info.Name != "" {
		return info.Name
	}
	return fmt.Sprintf("ASB-%03X", info.NodeID)
}

// TXTRecordsToStrings renders records as sorted key=value strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	out := make([]string, 0, len(txt))
	for k, v := range txt {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// StringsToTXTRecords parses key=value strings. Entries without '=' are
// kept as keys with an empty value.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap, len(strs))
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k == "" {
			continue
		}
		txt[k] = v
	}
	return txt
}

// ValidateInstanceName checks the DNS label limits.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
