package leangym

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/leanrl/lean-rl-search/cache"
)

// NoGoals is the goal text lean-gym reports when a proof is complete.
const NoGoals = "no goals"

// Reply is the decoded form of one lean-gym response line. The four named
// fields are the pinned reply shape, everything else the process sends is
// kept verbatim in Extra.
type Reply struct {
	Error         string
	SearchID      string
	TacticState   string
	TacticStateID string
	Extra         map[string]interface{}
}

func decodeReply(line string) (*Reply, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, &ProtocolError{Line: line, Err: err}
	}
	// a literal null unmarshals into a nil map
	if raw == nil {
		return nil, &ProtocolError{Line: line, Err: errors.New("reply is not a JSON object")}
	}
	r := &Reply{Extra: make(map[string]interface{})}
	for k, v := range raw {
		switch k {
		case "error":
			r.Error = asString(v)
		case "search_id":
			r.SearchID = asString(v)
		case "tactic_state":
			r.TacticState = asString(v)
		case "tactic_state_id":
			r.TacticStateID = asString(v)
		default:
			r.Extra[k] = v
		}
	}
	return r, nil
}

// lean-gym sends ids as decimal strings and null for absent fields
func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func encodeCommand(name string, args []string) (string, error) {
	bs, err := json.Marshal([]interface{}{name, args})
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// Instance speaks the lean-gym command vocabulary over a Channel. Successful
// tactic applications are remembered in the cache so repeated queries during
// tree search skip the process round trip.
type Instance struct {
	channel *Channel
	cache   cache.TacticCache
	// namespaces cache keys, search ids restart at zero for every process
	namespace string
}

func NewInstance(channel *Channel, tcache cache.TacticCache, namespace string) *Instance {
	return &Instance{
		channel:   channel,
		cache:     tcache,
		namespace: namespace,
	}
}

func (in *Instance) roundTrip(name string, args []string, skipWarnings bool) (*Reply, error) {
	cmd, err := encodeCommand(name, args)
	if err != nil {
		return nil, err
	}
	if err := in.channel.SendLine(cmd); err != nil {
		return nil, err
	}
	line, err := in.channel.ReceiveLine()
	if err != nil {
		return nil, err
	}
	// lean prints compile warnings on stdout while elaborating the
	// declaration, only before init_search replies. Goal text in later
	// replies may legitimately contain the word.
	for skipWarnings && strings.Contains(line, "warning:") {
		line, err = in.channel.ReceiveLine()
		if err != nil {
			return nil, err
		}
	}
	return decodeReply(line)
}

// InitSearch starts a proof search for the declaration.
func (in *Instance) InitSearch(decl string) (*Reply, error) {
	return in.roundTrip("init_search", []string{decl, ""}, true)
}

// RunTactic applies the tactic at the given state of the given search.
func (in *Instance) RunTactic(decl, searchID, stateID, tactic string) (*Reply, error) {
	key := in.cacheKey(decl, searchID, stateID, tactic)
	if in.cache != nil {
		if line, ok := in.cache.Get(key); ok {
			return decodeReply(line)
		}
	}
	rep, err := in.roundTrip("run_tac", []string{searchID, stateID, tactic}, false)
	if err != nil {
		return nil, err
	}
	if in.cache != nil && rep.Error == "" {
		bs, err := json.Marshal(map[string]string{
			"error":           "",
			"search_id":       rep.SearchID,
			"tactic_state":    rep.TacticState,
			"tactic_state_id": rep.TacticStateID,
		})
		if err == nil {
			in.cache.Put(key, string(bs))
		}
	}
	return rep, nil
}

// ClearSearch discards a search on the process side.
func (in *Instance) ClearSearch(searchID string) (*Reply, error) {
	return in.roundTrip("clear_search", []string{searchID}, false)
}

func (in *Instance) cacheKey(decl, searchID, stateID, tactic string) string {
	return strings.Join([]string{in.namespace, decl, searchID, stateID, tactic}, "|")
}
