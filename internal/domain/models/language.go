package models

import (
	"fmt"
	"strings"
)

// Language selects the column labels and page strings.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageBengali Language = "bn"
)

// ParseLanguage normalizes a language code. Empty input means English.
func ParseLanguage(code string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(code))) {
	case "", LanguageEnglish:
		return LanguageEnglish, nil
	case LanguageBengali:
		return LanguageBengali, nil
	default:
		return "", fmt.Errorf("unsupported language %q", code)
	}
}

var columnLabels = map[Language][ColumnCount]string{
	LanguageEnglish: {"Date", "Egg Count", "Feed Cost", "Medicine Note"},
	LanguageBengali: {"তারিখ", "ডিমের সংখ্যা", "খাবারের খরচ", "ওষুধের নোট"},
}

// Columns returns the localized header row of the store.
func (l Language) Columns() []string {
	labels, ok := columnLabels[l]
	if !ok {
		labels = columnLabels[LanguageEnglish]
	}
	return labels[:]
}

var messages = map[Language]map[string]string{
	LanguageEnglish: {
		"title":           "Farm Diary",
		"submit":          "Save entry",
		"records":         "Saved records",
		"new_entry":       "New entry",
		"export":          "Download CSV",
		"empty":           "No records yet.",
		"saved":           "Entry saved.",
		"save_failed":     "Could not save the entry. Your input was kept, please try again.",
		"invalid":         "Please correct the highlighted fields.",
		"unavailable":     "The record store is not reachable. Fix the configuration and restart the service.",
		"summary":         "Monthly summary",
		"entries":         "Entries",
		"total_eggs":      "Total eggs",
		"total_feed_cost": "Total feed cost",
		"medicine_days":   "Days with medicine",
		"negative":        "Cannot be negative.",
		"not_integer":     "Must be a whole number.",
		"not_number":      "Must be a number.",
		"date_required":   "A valid date (YYYY-MM-DD) is required.",
		"no_recent_data":  "No recent data for anomaly detection.",
		"no_anomaly":      "No significant anomaly detected.",
		"anomaly_found":   "This entry differs from the last 7 days.",
		"analysis_failed": "Failed to get anomaly analysis.",
		"analysis_off":    "Anomaly analysis is not configured.",
	},
	LanguageBengali: {
		"title":           "খামার ডায়েরি",
		"submit":          "সংরক্ষণ করুন",
		"records":         "সংরক্ষিত রেকর্ড",
		"new_entry":       "নতুন এন্ট্রি",
		"export":          "CSV ডাউনলোড",
		"empty":           "এখনও কোনো রেকর্ড নেই।",
		"saved":           "তথ্য সফলভাবে সংরক্ষিত হয়েছে!",
		"save_failed":     "সংরক্ষণ করা যায়নি। আপনার তথ্য রাখা আছে, আবার চেষ্টা করুন।",
		"invalid":         "চিহ্নিত ঘরগুলো ঠিক করুন।",
		"unavailable":     "ডেটা স্টোরে সংযোগ করা যায়নি। কনফিগারেশন ঠিক করে সার্ভিস আবার চালু করুন।",
		"summary":         "মাসিক সারাংশ",
		"entries":         "এন্ট্রি",
		"total_eggs":      "মোট ডিম",
		"total_feed_cost": "মোট খাবারের খরচ",
		"medicine_days":   "ওষুধ দেওয়ার দিন",
		"negative":        "ঋণাত্মক হতে পারবে না।",
		"not_integer":     "পূর্ণ সংখ্যা দিন।",
		"not_number":      "সংখ্যা দিন।",
		"date_required":   "সঠিক তারিখ (YYYY-MM-DD) দিন।",
		"no_recent_data":  "অস্বাভাবিকতা যাচাইয়ের জন্য সাম্প্রতিক কোনো তথ্য নেই।",
		"no_anomaly":      "উল্লেখযোগ্য কোনো অস্বাভাবিকতা পাওয়া যায়নি।",
		"anomaly_found":   "এই এন্ট্রি গত ৭ দিনের থেকে আলাদা।",
		"analysis_failed": "অস্বাভাবিকতার বিশ্লেষণ পাওয়া যায়নি।",
		"analysis_off":    "অস্বাভাবিকতা বিশ্লেষণ চালু করা নেই।",
	},
}

// T returns the localized string for key, falling back to English and then
// to the key itself.
func (l Language) T(key string) string {
	if msg, ok := messages[l][key]; ok {
		return msg
	}
	if msg, ok := messages[LanguageEnglish][key]; ok {
		return msg
	}
	return key
}
