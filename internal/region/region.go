package region

import (
	"strings"

	"github.com/carepath/carepath/internal/model"
)

// canonicalProvinces maps every accepted spelling of a first-level Korean
// administrative division to its canonical name. The government place APIs
// reject abbreviated forms ("서울"), so lookups must normalize before querying.
var canonicalProvinces = map[string]string{
	"서울": "서울특별시", "서울시": "서울특별시", "서울특별시": "서울특별시",
	"부산": "부산광역시", "부산시": "부산광역시", "부산광역시": "부산광역시",
	"대구": "대구광역시", "대구시": "대구광역시", "대구광역시": "대구광역시",
	"인천": "인천광역시", "인천시": "인천광역시", "인천광역시": "인천광역시",
	"광주": "광주광역시", "광주시": "광주광역시", "광주광역시": "광주광역시",
	"대전": "대전광역시", "대전시": "대전광역시", "대전광역시": "대전광역시",
	"울산": "울산광역시", "울산시": "울산광역시", "울산광역시": "울산광역시",
	"세종": "세종특별자치시", "세종시": "세종특별자치시", "세종특별자치시": "세종특별자치시",
	"경기": "경기도", "경기도": "경기도",
	"강원": "강원특별자치도", "강원도": "강원특별자치도", "강원특별자치도": "강원특별자치도",
	"충북": "충청북도", "충청북도": "충청북도",
	"충남": "충청남도", "충청남도": "충청남도",
	"전북": "전북특별자치도", "전라북도": "전북특별자치도", "전북특별자치도": "전북특별자치도",
	"전남": "전라남도", "전라남도": "전라남도",
	"경북": "경상북도", "경상북도": "경상북도",
	"경남": "경상남도", "경상남도": "경상남도",
	"제주": "제주특별자치도", "제주도": "제주특별자치도", "제주특별자치도": "제주특별자치도",
}

// Resolve derives the administrative region key from a candidate pair of
// addresses. The road address wins when both are present; the lot address is
// the fallback. Empty or single-token addresses yield a zero key rather than
// a guessed one; an unmapped first token yields an empty province with the
// district tokens kept.
//
// Token 1 must name a province or metropolitan city. For three-level
// addresses such as "경기도 성남시 분당구 ..." the district key combines the
// city and district tokens ("성남시 분당구") and keeps the city alone as a
// fallback for APIs that index districts at city granularity.
func Resolve(roadAddress, lotAddress string) model.RegionKey {
	addr := strings.TrimSpace(roadAddress)
	if addr == "" {
		addr = strings.TrimSpace(lotAddress)
	}
	if addr == "" {
		return model.RegionKey{}
	}

	tokens := strings.Fields(addr)
	if len(tokens) < 2 {
		return model.RegionKey{}
	}

	key := model.RegionKey{
		Province: canonicalProvinces[tokens[0]],
	}

	if len(tokens) >= 3 && strings.HasSuffix(tokens[1], "시") &&
		(strings.HasSuffix(tokens[2], "구") || strings.HasSuffix(tokens[2], "군")) {
		key.District = tokens[1] + " " + tokens[2]
		key.DistrictFallback = tokens[1]
		return key
	}

	key.District = tokens[1]
	return key
}

// Canonical returns the canonical name for a province spelling, or the empty
// string when the spelling is not a known first-level division.
func Canonical(province string) string {
	return canonicalProvinces[strings.TrimSpace(province)]
}
