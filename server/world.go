package server

// 世界网格尺寸，客户端用同一种子复现同样的地形
const (
	worldWidth  = 512
	worldHeight = 512
)

// World 由种子确定性生成的世界状态
// 比赛核心只持有它、不解释其内容；客户端凭种子自行重建
type World struct {
	Seed    uint32
	Width   int
	Height  int
	terrain []byte
}

// GenerateWorld 纯函数：同一种子恒定产出同一世界，建赛时调用一次
func GenerateWorld(seed uint32) *World {
	w := &World{
		Seed:    seed,
		Width:   worldWidth,
		Height:  worldHeight,
		terrain: make([]byte, worldWidth*worldHeight),
	}
	// xorshift32 推进地形噪声，保证跨平台一致
	s := seed
	if s == 0 {
		s = 0x9e3779b9
	}
	for i := range w.terrain {
		s ^= s << 13
		s ^= s >> 17
		s ^= s << 5
		w.terrain[i] = byte(s >> 24)
	}
	return w
}

// TileAt 读取地形格，越界折回（世界在逻辑上是环面）
func (w *World) TileAt(x, y int) byte {
	x = ((x % w.Width) + w.Width) % w.Width
	y = ((y % w.Height) + w.Height) % w.Height
	return w.terrain[y*w.Width+x]
}

// Checksum 地形摘要，用于日志核对两端世界是否一致
func (w *World) Checksum() uint32 {
	var sum uint32 = 2166136261
	for _, b := range w.terrain {
		sum ^= uint32(b)
		sum *= 16777619
	}
	return sum
}
