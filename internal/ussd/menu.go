// Package ussd serves the MkulimaMkononi USSD menu as an Africa's Talking
// callback.
package ussd

import (
	"context"
	"strings"
	"unicode/utf8"
)

// MaxResponseLength is the longest response a USSD page can display
const MaxResponseLength = 182

const (
	prefixContinue = "CON "
	prefixEnd      = "END "
)

// Menu texts
const (
	mainMenu = prefixContinue + "Welcome to MkulimaMkononi! \n" +
		"1. Get Agri-Tips \n" +
		"2. Weather Forecast \n" +
		"3. My Account"
	askMenuItem = " \n4. Ask the assistant"

	cropMenu = prefixContinue + "Select crop for tips: \n" +
		"1. Maize \n" +
		"2. Beans \n" +
		"3. Coffee"

	maizeTip  = prefixEnd + "Maize Tip: Ensure proper spacing for optimal growth. Look out for Fall Armyworm during early stages."
	beansTip  = prefixEnd + "Beans Tip: Plant disease-resistant varieties. Provide support for climbing beans."
	coffeeTip = prefixEnd + "Coffee Tip: Prune regularly for better yield. Monitor for Coffee Berry Disease."

	weatherReport = prefixEnd + "Weather for Ruiru: Sunny with scattered clouds, 28°C. Good conditions for fieldwork."

	accountMenu = prefixContinue + "My Account: \n" +
		"1. View Phone Number \n" +
		"2. Change Crop Preference"

	phoneNumberPrefix = prefixEnd + "Your registered phone number is: "
	underDevelopment  = prefixEnd + "Feature under development. Please contact support to change preferences."

	askPrompt = prefixContinue + "Type your question:"

	invalidSelection = prefixEnd + "Invalid selection. Please try again."
)

// askPath is the selection that opens the assistant branch
const askPath = "4"

// Request carries the fields Africa's Talking posts with every step of a
// session. Text is the *-joined path of everything the user entered.
type Request struct {
	SessionID   string `form:"sessionId"`
	ServiceCode string `form:"serviceCode"`
	PhoneNumber string `form:"phoneNumber"`
	Text        string `form:"text"`
}

// AskFunc answers a free-text question
type AskFunc func(ctx context.Context, question string) string

// Respond returns the response text for req. ask is only called for the
// assistant branch and may be nil, in which case the branch is neither
// offered nor accepted.
func Respond(ctx context.Context, req Request, ask AskFunc) string {
	text := strings.TrimSpace(req.Text)

	switch text {
	case "":
		if ask == nil {
			return mainMenu
		}
		return mainMenu + askMenuItem
	case "1":
		return cropMenu
	case "1*1":
		return maizeTip
	case "1*2":
		return beansTip
	case "1*3":
		return coffeeTip
	case "2":
		return weatherReport
	case "3":
		return accountMenu
	case "3*1":
		return phoneNumberPrefix + req.PhoneNumber
	case "3*2":
		return underDevelopment
	}

	if ask == nil || (text != askPath && !strings.HasPrefix(text, askPath+"*")) {
		return invalidSelection
	}

	question := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(text, askPath), "*"))
	if question == "" {
		return askPrompt
	}
	return Truncate(prefixEnd+ask(ctx, question), MaxResponseLength)
}

// Truncate shortens s to at most limit runes, marking the cut with "..."
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 3 {
		return string([]rune(s)[:limit])
	}
	return string([]rune(s)[:limit-3]) + "..."
}
