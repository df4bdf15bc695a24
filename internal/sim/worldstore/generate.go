package worldstore

import "voxelsniper.dev/internal/sim/mathx"

// surfaceY is the top solid block of a column. Terrain is flat around
// GroundY with shallow 8x8 block steps.
func (s *Store) surfaceY(wx, wz int) int {
	step := int(mathx.Hash2(s.Gen.Seed, mathx.FloorDiv(wx, 8), mathx.FloorDiv(wz, 8))%9) - 6
	return mathx.ClampInt(s.Gen.GroundY+step, 1, s.Gen.Height-1)
}

func (s *Store) generateChunk(ch *Chunk) {
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			wx := ch.CX*ChunkSize + x
			wz := ch.CZ*ChunkSize + z
			top := s.surfaceY(wx, wz)
			for y := 0; y < ch.Height; y++ {
				b := s.air
				switch {
				case y == 0:
					b = s.bedrock
				case y < top-3:
					b = s.stone
					switch roll := mathx.Hash3(s.Gen.Seed+7, wx, y, wz) % 1000; {
					case roll < 8:
						b = s.coal
					case roll < 12:
						b = s.iron
					}
				case y < top:
					b = s.dirt
				case y == top:
					if top < s.Gen.WaterY {
						b = s.sand
					} else {
						b = s.grass
					}
				case y <= s.Gen.WaterY:
					b = s.water
				}
				ch.Blocks[ch.index(x, y, z)] = b
			}
		}
	}
}
