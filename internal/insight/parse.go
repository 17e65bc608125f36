package insight

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/existflow/devpilot/internal/model"
)

// Field defaults applied when the model output is missing or malformed
const (
	DefaultOverview          = "Daily project analysis is ready. Review your projects for today's priorities."
	DefaultUrgency           = 5
	DefaultProductivityScore = 75
)

// FallbackSuggestions are used when the response could not be parsed at all
var FallbackSuggestions = []string{
	"Review your project deadlines",
	"Update the progress of your tasks",
}

// FallbackInsight is the generic insight used when parsing fails
func FallbackInsight() model.Insight {
	return model.Insight{
		Overview:          "Daily analysis available - check your projects for today's priorities.",
		PriorityProjects:  []model.PriorityProject{},
		RecommendedTasks:  []model.RecommendedTask{},
		Alerts:            []model.Alert{},
		Suggestions:       append([]string{}, FallbackSuggestions...),
		ProductivityScore: DefaultProductivityScore,
	}
}

type object map[string]json.RawMessage

// ParseInsight extracts and decodes the insight object embedded in text.
// Every field is defaulted on its own; only a missing or undecodable
// object is an error.
func ParseInsight(text string) (model.Insight, error) {
	obj, err := decodeObject(text)
	if err != nil {
		return model.Insight{}, err
	}

	ins := model.Insight{
		Overview:          obj.str("overview"),
		PriorityProjects:  []model.PriorityProject{},
		RecommendedTasks:  []model.RecommendedTask{},
		Alerts:            []model.Alert{},
		Suggestions:       []string{},
		ProductivityScore: DefaultProductivityScore,
	}
	if ins.Overview == "" {
		ins.Overview = DefaultOverview
	}

	for _, item := range obj.objects("priorityProjects", "priority_projects") {
		reason := item.str("reason")
		if reason == "" {
			continue
		}
		ins.PriorityProjects = append(ins.PriorityProjects, model.PriorityProject{
			ProjectID: item.str("projectId", "project_id"),
			Reason:    reason,
			Urgency:   item.clampedInt(1, 10, DefaultUrgency, "urgency"),
		})
	}

	for _, item := range obj.objects("recommendedTasks", "recommended_tasks") {
		reason := item.str("reason")
		if reason == "" {
			continue
		}
		ins.RecommendedTasks = append(ins.RecommendedTasks, model.RecommendedTask{
			ProjectID: item.str("projectId", "project_id"),
			TaskID:    item.str("taskId", "task_id"),
			Reason:    reason,
		})
	}

	for _, item := range obj.objects("alerts") {
		msg := item.str("message")
		if msg == "" {
			continue
		}
		ins.Alerts = append(ins.Alerts, model.Alert{
			Kind:      alertKind(item.str("type", "kind")),
			Message:   msg,
			ProjectID: item.str("projectId", "project_id"),
			TaskID:    item.str("taskId", "task_id"),
		})
	}

	for _, raw := range obj.list("suggestions") {
		if s := rawString(raw); s != "" {
			ins.Suggestions = append(ins.Suggestions, s)
		}
	}

	ins.ProductivityScore = obj.clampedInt(1, 100, DefaultProductivityScore, "productivity_score", "productivityScore")
	return ins, nil
}

// decodeObject finds the JSON object embedded in text
func decodeObject(text string) (object, error) {
	span, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	var obj object
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, &ParseError{Reason: "invalid JSON object", Err: err}
	}
	if obj == nil {
		return nil, &ParseError{Reason: "invalid JSON object"}
	}
	return obj, nil
}

func alertKind(s string) model.AlertKind {
	switch model.AlertKind(strings.ToLower(strings.TrimSpace(s))) {
	case model.AlertDeadline:
		return model.AlertDeadline
	case model.AlertOverdue:
		return model.AlertOverdue
	default:
		return model.AlertBlocked
	}
}

// str returns the first key holding a non-empty string or number
func (o object) str(keys ...string) string {
	for _, k := range keys {
		if raw, ok := o[k]; ok {
			if s := rawString(raw); s != "" {
				return s
			}
		}
	}
	return ""
}

// list returns the first key holding a JSON array
func (o object) list(keys ...string) []json.RawMessage {
	for _, k := range keys {
		raw, ok := o[k]
		if !ok {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			return items
		}
	}
	return nil
}

// objects returns the object elements of the first array key; other
// element types are skipped
func (o object) objects(keys ...string) []object {
	var out []object
	for _, raw := range o.list(keys...) {
		var item object
		if err := json.Unmarshal(raw, &item); err == nil && item != nil {
			out = append(out, item)
		}
	}
	return out
}

// clampedInt reads a number or numeric string, rounds it and clamps it to
// [lo, hi]; anything else yields def
func (o object) clampedInt(lo, hi, def int, keys ...string) int {
	for _, k := range keys {
		raw, ok := o[k]
		if !ok {
			continue
		}
		f, ok := rawNumber(raw)
		if !ok {
			return def
		}
		f = math.Round(f)
		if f < float64(lo) {
			return lo
		}
		if f > float64(hi) {
			return hi
		}
		return int(f)
	}
	return def
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func rawNumber(raw json.RawMessage) (float64, bool) {
	if strings.TrimSpace(string(raw)) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}
