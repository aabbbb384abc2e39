package wialon

import "encoding/json"

// Data-flag masks for core/search_items. The unit base flag carries id
// and name; the rest select the property, last-message and counter
// blocks.
const (
	vehicleListFlags = 8388609  // base + custom properties
	stateFlags       = 15729697 // base + last message + position + parameters
	counterFlags     = 8193     // base + counters
	sessionDataFlags = 8224     // position + counters, for update_data_flags
)

type loginResponse struct {
	EID  string `json:"eid"`
	User struct {
		ID   int    `json:"id"`
		Name string `json:"nm"`
	} `json:"user"`
}

// apiError is the body Wialon returns instead of a result payload.
type apiError struct {
	Error  int    `json:"error"`
	Reason string `json:"reason"`
}

type searchSpec struct {
	ItemsType     string `json:"itemsType"`
	PropName      string `json:"propName"`
	PropValueMask string `json:"propValueMask"`
	SortType      string `json:"sortType"`
	PropType      string `json:"propType"`
}

type searchParams struct {
	Spec  searchSpec `json:"spec"`
	Force int        `json:"force"`
	Flags int64      `json:"flags"`
	From  int        `json:"from"`
	To    int        `json:"to"`
}

func unitSearch(flags int64) searchParams {
	return searchParams{
		Spec: searchSpec{
			ItemsType:     "avl_unit",
			PropName:      "avl_unit",
			PropValueMask: "*",
			SortType:      "sys_name",
			PropType:      "avl_unit",
		},
		Force: 1,
		Flags: flags,
	}
}

type searchResponse struct {
	Items []unitItem `json:"items"`
}

// unitItem is one avl_unit; which blocks are present depends on the
// request flags.
type unitItem struct {
	ID   int    `json:"id"`
	Name string `json:"nm"`

	// Custom properties, keyed by property id.
	ProfileFields map[string]profileField `json:"pflds"`

	LastMessage *lastMessage `json:"lmsg"`

	// Counter block.
	MileageCounter *float64 `json:"cnm"`
	EngineHours    *float64 `json:"cneh"`
}

type profileField struct {
	ID    json.Number `json:"id"`
	Name  string      `json:"n"`
	Value string      `json:"v"`
}

type lastMessage struct {
	Time       int64              `json:"t"`
	ReceivedAt int64              `json:"rt"`
	Position   *position          `json:"pos"`
	Params     map[string]float64 `json:"p"`
}

type position struct {
	Lon   float64 `json:"x"`
	Lat   float64 `json:"y"`
	Speed int     `json:"s"`
}

type messagesResponse struct {
	Messages []historyMessage `json:"messages"`
}

type historyMessage struct {
	Time     int64     `json:"t"`
	Position *position `json:"pos"`
}

type updateFlagsSpec struct {
	Type  string `json:"type"`
	Data  []int  `json:"data"`
	Flags int64  `json:"flags"`
	Mode  int    `json:"mode"`
}

type updateFlagsParams struct {
	Spec []updateFlagsSpec `json:"spec"`
}

// avlEventsResponse is the long-poll result: buffered events for the
// units registered on the session.
type avlEventsResponse struct {
	Time   int64      `json:"tm"`
	Events []avlEvent `json:"events"`
}

type avlEvent struct {
	UnitID int             `json:"i"`
	Type   string          `json:"t"` // m=message, u=update, d=delete
	Data   json.RawMessage `json:"d"`
}

// eventMessage is the data block of a "m" event. Position/state
// messages carry tp "ud"; notification messages carry tp "evt" with
// the event text.
type eventMessage struct {
	Time     int64     `json:"t"`
	Kind     string    `json:"tp"`
	Position *position `json:"pos"`
	Text     string    `json:"et"`
}
