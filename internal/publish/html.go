package publish

import (
	"fmt"
	"net/url"
	"strings"

	"modu-catholic/internal/model"
)

// Inline styles applied to every generated post. WordPress themes vary
// too much to rely on theme CSS.
const (
	tableStyle      = "width: 100%; border-collapse: collapse; margin: 20px 0; font-size: 15px;"
	thStyle         = "background-color: #f3f4f6; padding: 12px; border: 1px solid #e5e7eb; text-align: center; font-weight: 600;"
	tdStyle         = "padding: 12px; border: 1px solid #e5e7eb; text-align: center;"
	warningBoxStyle = "background: #fee2e2; color: #991b1b; padding: 15px; border-radius: 8px; margin: 20px 0; font-weight: 500;"
)

const appButton = `
<div style="text-align: center; margin: 30px 0;">
    <a href="https://moducatholic.app.link" target="_blank"
       style="display: inline-block; background: linear-gradient(135deg, #6366f1, #8b5cf6);
              color: white; padding: 15px 30px; border-radius: 30px;
              text-decoration: none; font-weight: 600; font-size: 15px;">
        🔔 모두의성당 앱에서 알림 받기
    </a>
</div>
`

const footerNote = `
<p style="color: #9ca3af; font-size: 12px; text-align: center; margin-top: 20px;">
    ⓒ 모두의성당 | 정보 수정 요청: moducatholic@gmail.com
</p>
`

// RenderHTML builds the complete post body for a parish.
func RenderHTML(p model.Parish, intro string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<h1 style=\"font-size: 24px; margin-bottom: 20px;\">🙏 %s 안내</h1>\n", p.Name)
	fmt.Fprintf(&sb, "<p style=\"font-size: 16px; line-height: 1.8; margin-bottom: 25px;\">%s</p>\n", intro)
	sb.WriteString(massTableSection(p))
	sb.WriteString(locationSection(p))
	sb.WriteString(footerSection(p))
	return sb.String()
}

func massTableSection(p model.Parish) string {
	if !p.HasMassTimes {
		return warningBox("⚠️ 현재 온라인 미사 시간 정보가 없습니다. 방문 전 사무실로 확인 부탁드립니다.")
	}
	if len(p.MassTimesStructured) == 0 {
		return warningBox("⚠️ 미사 시간 정보를 불러올 수 없습니다. 성당에 직접 문의해 주세요.")
	}

	var sunday, weekday []model.MassTimeRow
	for _, row := range p.MassTimesStructured {
		if strings.Contains(row.Type, "주일") {
			sunday = append(sunday, row)
		} else {
			weekday = append(weekday, row)
		}
	}

	var sb strings.Builder
	sb.WriteString("<h2 style=\"margin-top: 30px;\">⏰ 미사 시간표</h2>\n")
	if len(sunday) > 0 {
		sb.WriteString(massTable("🙏 주일 미사", sunday))
	}
	if len(weekday) > 0 {
		sb.WriteString(massTable("📿 평일 미사", weekday))
	}
	sb.WriteString("<p style=\"color: #6b7280; font-size: 13px;\">※ 미사 시간은 변경될 수 있습니다. 방문 전 확인을 권장합니다.</p>\n")
	return sb.String()
}

func massTable(heading string, rows []model.MassTimeRow) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<h3>%s</h3>\n", heading)
	fmt.Fprintf(&sb, "<table style=%q>\n", tableStyle)
	fmt.Fprintf(&sb, "<tr><th style=%q>요일</th><th style=%q>시간</th></tr>\n", thStyle, thStyle)
	for _, row := range rows {
		fmt.Fprintf(&sb, "<tr><td style=%q>%s</td><td style=%q>%s</td></tr>\n",
			tdStyle, dayLabel(row.Day), tdStyle, row.Times)
	}
	sb.WriteString("</table>\n")
	return sb.String()
}

// dayLabel appends 요일 to a bare day name. Rows without a day render
// an empty cell, and days the source already spelled out pass through.
func dayLabel(day string) string {
	if day == "" || strings.HasSuffix(day, "요일") {
		return day
	}
	return day + "요일"
}

func warningBox(message string) string {
	return fmt.Sprintf("<div style=%q>\n    %s\n</div>\n", warningBoxStyle, message)
}

func locationSection(p model.Parish) string {
	var sb strings.Builder
	sb.WriteString("<h2 style=\"margin-top: 30px;\">📍 오시는 길 & 연락처</h2>\n")
	sb.WriteString("<ul style=\"list-style: none; padding: 0; font-size: 15px; line-height: 2;\">\n")
	if p.Address != "" {
		mapURL := "https://map.naver.com/v5/search/" + url.PathEscape(p.Address)
		fmt.Fprintf(&sb, "<li>🏠 <strong>주소:</strong> %s <a href=%q target=\"_blank\" style=\"color: #2563eb;\">📍 지도로 위치 보기</a></li>\n",
			p.Address, mapURL)
	}
	if p.Phone != "" {
		fmt.Fprintf(&sb, "<li>📞 <strong>전화:</strong> <a href=\"tel:%s\" style=\"color: #2563eb;\">%s</a></li>\n",
			p.Phone, p.Phone)
	}
	sb.WriteString("</ul>\n")

	if len(p.Landmarks) > 0 {
		sb.WriteString("<h3 style=\"margin-top: 20px;\">🏪 주변 명소</h3>\n")
		sb.WriteString("<ul style=\"padding-left: 20px; line-height: 1.8;\">\n")
		for i, lm := range p.Landmarks {
			if i == maxFooterLandmarks {
				break
			}
			fmt.Fprintf(&sb, "<li><strong>%s</strong> (%dm) - %s</li>\n", lm.Name, lm.DistanceMeters(), lm.Category)
		}
		sb.WriteString("</ul>\n")
	}
	return sb.String()
}

func footerSection(p model.Parish) string {
	var sb strings.Builder
	sb.WriteString("<hr style=\"margin: 30px 0; border: none; border-top: 1px solid #e5e7eb;\">\n")

	if len(p.SEOTags) > 0 {
		tags := p.SEOTags
		if len(tags) > maxTags {
			tags = tags[:maxTags]
		}
		hashtags := make([]string, 0, len(tags))
		for _, tag := range tags {
			hashtags = append(hashtags, "#"+tag)
		}
		fmt.Fprintf(&sb, "<p style=\"color: #6b7280; font-size: 13px;\">%s</p>\n", strings.Join(hashtags, " "))
	}

	sb.WriteString("<!-- AD_SLOT_BOTTOM -->\n")
	sb.WriteString(appButton)
	sb.WriteString(footerNote)
	return sb.String()
}

// Title builds the post title: region and closest landmark when known,
// progressively plainer otherwise.
func Title(p model.Parish) string {
	region := regionOf(p.Address)
	landmark := closestLandmarkName(p.Landmarks)

	switch {
	case region != "" && landmark != "":
		return fmt.Sprintf("[%s] %s 미사시간 정보 (%s 근처)", region, p.Name, landmark)
	case region != "":
		return fmt.Sprintf("[%s] %s 미사시간 & 위치 안내", region, p.Name)
	default:
		return fmt.Sprintf("%s 미사시간 & 위치 안내", p.Name)
	}
}

// regionOf extracts a short region name from an address: the first
// token naming a city, district or county, with the suffix stripped.
func regionOf(address string) string {
	for _, part := range strings.Fields(address) {
		for _, suffix := range []string{"시", "구", "군"} {
			if strings.HasSuffix(part, suffix) && len(part) > len(suffix) {
				return strings.TrimSuffix(part, suffix)
			}
		}
	}
	return ""
}

func closestLandmarkName(landmarks []model.Landmark) string {
	if len(landmarks) == 0 {
		return ""
	}
	closest := landmarks[0]
	for _, lm := range landmarks[1:] {
		if lm.DistanceMeters() < closest.DistanceMeters() {
			closest = lm
		}
	}
	return closest.Name
}
