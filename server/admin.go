package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// HandleAdminConfig 提供新建比赛默认配置的读取与更新
// GET /admin/config  返回当前默认值
// POST /admin/config 以 JSON 载荷更新部分字段（只影响之后创建的比赛）
func HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	mm := GetMatchManager()

	type cfg struct {
		Seed             *uint32 `json:"seed,omitempty"`
		Capacity         *int    `json:"capacity,omitempty"`
		TargetPopulation *int    `json:"targetPopulation,omitempty"`
		TickIntervalUs   *int64  `json:"tickIntervalUs,omitempty"`
		ClockSyncProbes  *int    `json:"clockSyncProbes,omitempty"`
		Serialization    *string `json:"serialization,omitempty"`
		SendStartAck     *bool   `json:"sendStartAck,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		d := mm.Defaults()
		us := d.TickInterval.Microseconds()
		ser := "json"
		if d.SerType == SerBinary {
			ser = "binary"
		}
		cur := cfg{
			Seed:             &d.Seed,
			Capacity:         &d.Capacity,
			TargetPopulation: &d.TargetPopulation,
			TickIntervalUs:   &us,
			ClockSyncProbes:  &d.ClockSyncProbes,
			Serialization:    &ser,
			SendStartAck:     &d.SendStartAck,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cur)
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		d := mm.Defaults()
		if body.Seed != nil {
			d.Seed = *body.Seed
		}
		if body.Capacity != nil {
			d.Capacity = *body.Capacity
		}
		if body.TargetPopulation != nil {
			d.TargetPopulation = *body.TargetPopulation
		}
		if body.TickIntervalUs != nil {
			d.TickInterval = time.Duration(*body.TickIntervalUs) * time.Microsecond
		}
		if body.ClockSyncProbes != nil {
			d.ClockSyncProbes = *body.ClockSyncProbes
		}
		if body.Serialization != nil {
			st, err := ParseSerialization(*body.Serialization)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			d.SerType = st
		}
		if body.SendStartAck != nil {
			d.SendStartAck = *body.SendStartAck
		}
		if err := d.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mm.SetDefaults(d)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		Log.Infof("defaults updated: capacity=%d target=%d tick=%s probes=%d ack=%v",
			d.Capacity, d.TargetPopulation, d.TickInterval, d.ClockSyncProbes, d.SendStartAck)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出指定比赛的运行指标
// GET /metrics?match=1
func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	matchID := uint64(1)
	if s := r.URL.Query().Get("match"); s != "" {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			http.Error(w, "invalid match id", http.StatusBadRequest)
			return
		}
		matchID = n
	}
	match, ok := GetMatchManager().Lookup(uint32(matchID))
	if !ok {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}
	payload := map[string]any{
		"match":      matchID,
		"population": match.Population(),
		"metrics":    match.Metrics().Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
