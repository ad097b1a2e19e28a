package projections

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"redline/internal/domain/session"
)

// Labels is the UI copy for one language.
type Labels struct {
	Title                     string
	PaymentSuccess            string
	PaymentFail               string
	JobDescription            string
	JobDescriptionPlaceholder string
	ResumeFile                string
	ResumeText                string
	NoFile                    string
	Analyze                   string
	Analyzing                 string
	LeftTitle                 string
	RightTitle                string
	NoResume                  string
	Unlocked                  string
	RisksTitle                string
	QuestionsTitle            string
	NoAnalysis                string
	NoQuestions               string
	Quote                     string
	Why                       string
	Intent                    string
	LockedMessage             string
	ImproverTitle             string
	ImproverDesc              string
	ImproverPlaceholder       string
	Improve                   string
	Improving                 string
	Generic                   string
	Yes                       string
	No                        string
	Issues                    string
	NoIssues                  string
	StarUpgrade               string
	FollowTradeOff            string
	FollowMetrics             string
	FollowContribution        string
	PaywallTitle              string
	PaywallButton             string // formatted with the price
	Paying                    string
	LeadTitle                 string
	LeadBeta                  string
	LeadEmailPlaceholder      string
	LeadSubmit                string
	LeadSubmitting            string
	LeadDone                  string
	GoBack                    string
	Code                      string
	Checkout                  string
}

var labelsKo = Labels{
	Title:                     "REDLINE",
	PaymentSuccess:            "잠금이 해제되었습니다",
	PaymentFail:               "결제가 취소/실패했습니다",
	JobDescription:            "채용 공고",
	JobDescriptionPlaceholder: "채용 JD를 붙여넣어 주세요.",
	ResumeFile:                "이력서 파일 (PDF/TXT)",
	ResumeText:                "또는 이력서 텍스트 붙여넣기",
	NoFile:                    "선택된 파일 없음",
	Analyze:                   "분석하기",
	Analyzing:                 "분석 중...",
	LeftTitle:                 "왼쪽: 이력서 원문",
	RightTitle:                "오른쪽: AI 검증 리포트",
	NoResume:                  "아직 업로드된 이력서가 없습니다.",
	Unlocked:                  "해제됨",
	RisksTitle:                "논리적 리스크 / 의심 주장",
	QuestionsTitle:            "압박 면접 질문",
	NoAnalysis:                "아직 분석 결과가 없습니다.",
	NoQuestions:               "아직 질문이 없습니다.",
	Quote:                     "인용",
	Why:                       "분석",
	Intent:                    "면접 의도",
	LockedMessage:             "잠긴 결과입니다. 결제 후 전체를 볼 수 있습니다.",
	ImproverTitle:             "면접 질문 개선기",
	ImproverDesc:              "이력서 업로드 없이도 독립적으로 동작합니다.",
	ImproverPlaceholder:       "면접 질문을 입력하세요",
	Improve:                   "질문 개선",
	Improving:                 "개선 중...",
	Generic:                   "일반적 질문 여부",
	Yes:                       "예",
	No:                        "아니오",
	Issues:                    "문제점",
	NoIssues:                  "큰 문제점이 없습니다.",
	StarUpgrade:               "STAR 개선",
	FollowTradeOff:            "후속 질문 (트레이드오프)",
	FollowMetrics:             "후속 질문 (지표)",
	FollowContribution:        "후속 질문 (기여도)",
	PaywallTitle:              "전체 검증 결과 잠김",
	PaywallButton:             "%s 결제하고 전체 보기",
	Paying:                    "결제 진행 중...",
	LeadTitle:                 "팀 기능/구독 관심 있나요? (Coming soon)",
	LeadBeta:                  "팀용 기능 베타 신청",
	LeadEmailPlaceholder:      "이메일(선택)",
	LeadSubmit:                "관심 등록",
	LeadSubmitting:            "제출 중...",
	LeadDone:                  "관심 등록 완료",
	GoBack:                    "돌아가기",
	Code:                      "코드",
	Checkout:                  "결제 창을 여는 중입니다...",
}

var labelsEn = Labels{
	Title:                     "REDLINE",
	PaymentSuccess:            "Unlocked",
	PaymentFail:               "Payment was canceled or failed.",
	JobDescription:            "Job Description",
	JobDescriptionPlaceholder: "Paste job description.",
	ResumeFile:                "Resume File (PDF/TXT)",
	ResumeText:                "Or paste resume text",
	NoFile:                    "No file selected",
	Analyze:                   "Analyze",
	Analyzing:                 "Analyzing...",
	LeftTitle:                 "LEFT: Resume Raw Text",
	RightTitle:                "RIGHT: AI Verification Report",
	NoResume:                  "No resume uploaded yet.",
	Unlocked:                  "Unlocked",
	RisksTitle:                "Logical Risks / Suspicious Claims",
	QuestionsTitle:            "Pressure Interview Questions",
	NoAnalysis:                "No analysis result yet.",
	NoQuestions:               "No questions yet.",
	Quote:                     "Quote",
	Why:                       "Why",
	Intent:                    "Intent",
	LockedMessage:             "Locked results. Complete payment to view all.",
	ImproverTitle:             "Interview Question Improver",
	ImproverDesc:              "Works independently even without resume upload.",
	ImproverPlaceholder:       "Enter interviewer question",
	Improve:                   "Improve Question",
	Improving:                 "Improving...",
	Generic:                   "Generic",
	Yes:                       "Yes",
	No:                        "No",
	Issues:                    "Issues",
	NoIssues:                  "No major issues detected.",
	StarUpgrade:               "STAR Upgrade",
	FollowTradeOff:            "Follow-up (Trade-off)",
	FollowMetrics:             "Follow-up (Metrics)",
	FollowContribution:        "Follow-up (Contribution)",
	PaywallTitle:              "Full Verification Locked",
	PaywallButton:             "Unlock all for %s",
	Paying:                    "Processing payment...",
	LeadTitle:                 "Interested in team features/subscription? (Coming soon)",
	LeadBeta:                  "Request Team Beta",
	LeadEmailPlaceholder:      "Email (optional)",
	LeadSubmit:                "Register Interest",
	LeadSubmitting:            "Submitting...",
	LeadDone:                  "Interest registered",
	GoBack:                    "Go back",
	Code:                      "code",
	Checkout:                  "Opening the payment window...",
}

// LabelsFor returns the copy for lang, defaulting to Korean.
func LabelsFor(lang session.Lang) Labels {
	if lang == session.LangEn {
		return labelsEn
	}
	return labelsKo
}

// FormatPrice groups digits the way lang's locale does, e.g. 2,000.
func FormatPrice(lang session.Lang, amount int64) string {
	tag := language.Korean
	if lang == session.LangEn {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprintf("%d", amount)
}
