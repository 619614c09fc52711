package navigator

import "strings"

// InferDiocese guesses the diocese from a road address when the record
// carries none. Metropolitan cities map directly; 경기 and 강원 are split
// by city because they straddle several dioceses. Addresses that match
// nothing return the empty string.
func InferDiocese(address string) string {
	if address == "" {
		return ""
	}

	switch {
	case strings.Contains(address, "서울"):
		return "서울대교구"
	case strings.Contains(address, "대구"):
		return "대구대교구"
	case strings.Contains(address, "광주"):
		return "광주대교구"
	case strings.Contains(address, "제주"):
		return "제주교구"
	case containsAny(address, "대전", "세종", "충남", "충청남도"):
		return "대전교구"
	case strings.Contains(address, "부산"):
		return "부산교구"
	case strings.Contains(address, "인천"):
		return "인천교구"
	case containsAny(address, "전북", "전라북도"):
		return "전주교구"
	case containsAny(address, "충북", "충청북도"):
		return "청주교구"
	case strings.Contains(address, "강원"):
		if strings.Contains(address, "원주") {
			return "원주교구"
		}
		return "춘천교구"
	case strings.Contains(address, "경기"):
		if containsAny(address, "수원", "성남", "용인", "안양", "안산", "화성", "평택") {
			return "수원교구"
		}
		if containsAny(address, "고양", "의정부", "파주", "남양주", "구리") {
			return "의정부교구"
		}
		if containsAny(address, "부천", "김포") {
			return "인천교구"
		}
		return "수원교구"
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
