package service

import "time"

const dateLayout = "2006-01-02"

// weekWindow returns the Monday and Sunday of the ISO week containing
// date, both formatted as YYYY-MM-DD.
func weekWindow(date string) (start, end string, err error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", "", err
	}
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := t.AddDate(0, 0, 1-wd)
	return monday.Format(dateLayout), monday.AddDate(0, 0, 6).Format(dateLayout), nil
}

func validDate(date string) bool {
	if len(date) != len(dateLayout) {
		return false
	}
	_, err := time.Parse(dateLayout, date)
	return err == nil
}

// Today returns the current date in the engine's canonical format.
func Today() string {
	return time.Now().Format(dateLayout)
}
