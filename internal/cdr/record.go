package cdr

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawRecord is one positional CDR line as emitted by the PBX feed.
// It is transient: the mapper turns it into a calls.Entry and the
// record itself survives only as the entry's raw snapshot.
type RawRecord struct {
	AccountCode  string `json:"accountcode"`
	CallID       string `json:"call_id"`
	Start        string `json:"start"`
	Answer       string `json:"answer"`
	End          string `json:"end"`
	CallerID     string `json:"clid"`
	Source       string `json:"src"`
	Destination  string `json:"dst"`
	Duration     int    `json:"duration"`
	BillSec      int    `json:"billsec"`
	Disposition  string `json:"disposition"`
	Cost         string `json:"cost"`
	Context      string `json:"dcontext"`
	Channel      string `json:"channel"`
	UserField    string `json:"userfield"`
	UniqueID     string `json:"uniqueid"`
	PrevUniqueID string `json:"prev_uniqueid"`
	LastDest     string `json:"lastdst"`
	WhereLanded  string `json:"wherelanded"`
	DMSource     string `json:"dm_src"`
	DMDest       string `json:"dm_dst"`
	LastApp      string `json:"lastapp"`
	LastData     string `json:"lastdata"`
	DestChannel  string `json:"dstchannel"`
	AMAFlags     string `json:"amaflags"`
	PeerAccount  string `json:"peeraccount"`
	LinkedID     string `json:"linkedid"`
	Sequence     string `json:"sequence"`
	RecordFile   string `json:"recordingfile"`
	Tenant       string `json:"tenant"`
}

// Columns is the fixed positional order of a feed line.
var Columns = []string{
	"accountcode", "call_id", "start", "answer", "end", "clid", "src", "dst",
	"duration", "billsec", "disposition", "cost", "dcontext", "channel",
	"userfield", "uniqueid", "prev_uniqueid", "lastdst", "wherelanded",
	"dm_src", "dm_dst", "lastapp", "lastdata", "dstchannel", "amaflags",
	"peeraccount", "linkedid", "sequence", "recordingfile", "tenant",
}

// FromFields maps tokens onto RawRecord by position. Missing trailing
// fields stay empty; extra fields are ignored.
func FromFields(fields []string) RawRecord {
	at := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	return RawRecord{
		AccountCode:  at(0),
		CallID:       at(1),
		Start:        at(2),
		Answer:       at(3),
		End:          at(4),
		CallerID:     at(5),
		Source:       at(6),
		Destination:  at(7),
		Duration:     atoi(at(8)),
		BillSec:      atoi(at(9)),
		Disposition:  at(10),
		Cost:         at(11),
		Context:      at(12),
		Channel:      at(13),
		UserField:    at(14),
		UniqueID:     at(15),
		PrevUniqueID: at(16),
		LastDest:     at(17),
		WhereLanded:  at(18),
		DMSource:     at(19),
		DMDest:       at(20),
		LastApp:      at(21),
		LastData:     at(22),
		DestChannel:  at(23),
		AMAFlags:     at(24),
		PeerAccount:  at(25),
		LinkedID:     at(26),
		Sequence:     at(27),
		RecordFile:   at(28),
		Tenant:       at(29),
	}
}

// aliases maps webhook JSON keys onto column positions, in precedence
// order. Column names themselves are always accepted first.
var aliases = []struct {
	key string
	pos int
}{
	{"unique_id", 15},
	{"uniqueId", 15},
	{"callid", 1},
	{"callId", 1},
	{"source", 6},
	{"destination", 7},
	{"calldate", 2},
	{"start_time", 2},
	{"answer_time", 3},
	{"end_time", 4},
	{"callerid", 5},
	{"caller_id", 5},
	{"context", 12},
	{"status", 10},
	{"recording", 28},
	{"account_code", 0},
}

// RecordFromMap builds a RawRecord from a decoded webhook object.
// Non-string values are stringified; unknown keys are ignored.
func RecordFromMap(m map[string]any) RawRecord {
	fields := make([]string, len(Columns))
	for i, name := range Columns {
		if v, ok := m[name]; ok {
			fields[i] = stringify(v)
		}
	}
	for _, a := range aliases {
		if fields[a.pos] != "" {
			continue
		}
		if v, ok := m[a.key]; ok {
			fields[a.pos] = stringify(v)
		}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return FromFields(fields)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
