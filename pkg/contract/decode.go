package contract

import (
	"fmt"
	"math/big"
	"strings"

	"novafund/pkg/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DecodeCampaign turns getCampaignDetails output into a Campaign. Values are
// matched by output name when every output is named, otherwise by position:
// seven values carry no id, eight carry the id first.
func DecodeCampaign(id uint64, outputs abi.Arguments, values []interface{}) (models.Campaign, error) {
	if named(outputs, len(values)) {
		return decodeNamed(id, outputs, values)
	}
	return decodePositional(id, values)
}

func named(outputs abi.Arguments, n int) bool {
	if len(outputs) != n || n == 0 {
		return false
	}
	for _, o := range outputs {
		if fieldKey(o.Name) == "" {
			return false
		}
	}
	return true
}

func fieldKey(name string) string {
	return strings.ToLower(strings.TrimLeft(name, "_"))
}

var fieldAliases = map[string]string{
	"goal":   "goalamount",
	"raised": "amountraised",
	"owner":  "creator",
}

func decodeNamed(id uint64, outputs abi.Arguments, values []interface{}) (models.Campaign, error) {
	byName := make(map[string]interface{}, len(values))
	for i, o := range outputs {
		key := fieldKey(o.Name)
		if alias, ok := fieldAliases[key]; ok {
			key = alias
		}
		byName[key] = values[i]
	}

	get := func(key string) (interface{}, error) {
		v, ok := byName[key]
		if !ok {
			return nil, fmt.Errorf("missing output %q", key)
		}
		return v, nil
	}

	ordered := make([]interface{}, 0, 7)
	for _, key := range []string{"creator", "title", "description", "goalamount", "deadline", "amountraised", "finalized"} {
		v, err := get(key)
		if err != nil {
			return models.Campaign{}, err
		}
		ordered = append(ordered, v)
	}

	if v, ok := byName["id"]; ok {
		n, err := asBig(v)
		if err != nil {
			return models.Campaign{}, fmt.Errorf("id: %w", err)
		}
		if n.IsUint64() && n.Uint64() > 0 {
			id = n.Uint64()
		}
	}
	return fromValues(id, ordered)
}

func decodePositional(id uint64, values []interface{}) (models.Campaign, error) {
	switch len(values) {
	case 7:
		return fromValues(id, values)
	case 8:
		n, err := asBig(values[0])
		if err != nil {
			return models.Campaign{}, fmt.Errorf("id: %w", err)
		}
		if n.IsUint64() && n.Uint64() > 0 {
			id = n.Uint64()
		}
		return fromValues(id, values[1:])
	default:
		return models.Campaign{}, fmt.Errorf("unexpected campaign tuple of %d values", len(values))
	}
}

// fromValues expects creator, title, description, goal, deadline, raised, finalized.
func fromValues(id uint64, v []interface{}) (models.Campaign, error) {
	creator, ok := v[0].(common.Address)
	if !ok {
		return models.Campaign{}, fmt.Errorf("creator: unexpected %T", v[0])
	}
	title, ok := v[1].(string)
	if !ok {
		return models.Campaign{}, fmt.Errorf("title: unexpected %T", v[1])
	}
	description, ok := v[2].(string)
	if !ok {
		return models.Campaign{}, fmt.Errorf("description: unexpected %T", v[2])
	}
	goal, err := asBig(v[3])
	if err != nil {
		return models.Campaign{}, fmt.Errorf("goal: %w", err)
	}
	deadline, err := asBig(v[4])
	if err != nil {
		return models.Campaign{}, fmt.Errorf("deadline: %w", err)
	}
	if !deadline.IsInt64() {
		return models.Campaign{}, fmt.Errorf("deadline out of range: %s", deadline)
	}
	raised, err := asBig(v[5])
	if err != nil {
		return models.Campaign{}, fmt.Errorf("raised: %w", err)
	}
	finalized, ok := v[6].(bool)
	if !ok {
		return models.Campaign{}, fmt.Errorf("finalized: unexpected %T", v[6])
	}

	return models.Campaign{
		ID:           id,
		Creator:      creator.Hex(),
		Title:        title,
		Description:  description,
		GoalAmount:   goal,
		Deadline:     deadline.Int64(),
		AmountRaised: raised,
		Finalized:    finalized,
	}, nil
}

func asBig(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case int64:
		return big.NewInt(n), nil
	case uint8:
		return big.NewInt(int64(n)), nil
	default:
		return nil, fmt.Errorf("unexpected %T", v)
	}
}
