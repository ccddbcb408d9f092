// Package dietplan reads diet-plan spreadsheets uploaded by admins and derives shopping lists from diets.
package dietplan

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/contract"
	"github.com/xuri/excelize/v2"
)

const (
	colDay      = "dzień"
	colMeal     = "posiłek"
	colName     = "nazwa"
	colIngr     = "składniki"
	colCalories = "kcal"
	colProtein  = "białko"
	colFat      = "tłuszcz"
	colCarbs    = "węglowodany"
)

var (
	digitsRegexp     = regexp.MustCompile(`\d+`)
	ingredientRegexp = regexp.MustCompile(`^(.*?)\s+(\d+(?:[.,]\d+)?)\s*([^\d\s]*)$`)
)

// RowError points at the spreadsheet row (1-based, as shown by spreadsheet apps) that could not be read.
type RowError struct {
	Row int
	Msg string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("wiersz %d: %s", e.Row, e.Msg)
}

// Parse reads the first sheet of an .xlsx diet plan.
func Parse(r io.Reader) ([]contract.DietDay, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Nie udało się odczytać pliku z dietą", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.NewValidation("Plik z dietą nie zawiera arkuszy")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Nie udało się odczytać arkusza", err)
	}
	days, err := ParseRows(rows)
	if err != nil {
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			return nil, apperr.Wrap(apperr.Validation, rowErr.Error(), rowErr)
		}
		return nil, err
	}
	return days, nil
}

// ParseRows turns sheet rows (header first) into diet days ordered by day number.
func ParseRows(rows [][]string) ([]contract.DietDay, error) {
	if len(rows) == 0 {
		return nil, apperr.NewValidation("Plik z dietą jest pusty")
	}
	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colDay, colMeal, colName} {
		if _, ok := cols[required]; !ok {
			return nil, apperr.NewValidation(fmt.Sprintf("Brak wymaganej kolumny %q", required))
		}
	}

	byDay := map[int]*contract.DietDay{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if isBlank(row) {
			continue
		}

		dayNumber, err := parseDay(cell(colDay))
		if err != nil {
			return nil, &RowError{Row: rowNum, Msg: "nieprawidłowy numer dnia"}
		}
		name := cell(colName)
		if name == "" {
			return nil, &RowError{Row: rowNum, Msg: "brak nazwy posiłku"}
		}
		ingredients, err := ParseIngredients(cell(colIngr))
		if err != nil {
			return nil, &RowError{Row: rowNum, Msg: err.Error()}
		}
		meal := contract.DayMeal{
			MealType:    contract.ParseMealType(cell(colMeal)),
			Name:        name,
			Ingredients: ingredients,
		}
		for _, n := range []struct {
			col string
			dst *float64
		}{
			{colCalories, &meal.Calories},
			{colProtein, &meal.ProteinG},
			{colFat, &meal.FatG},
			{colCarbs, &meal.CarbsG},
		} {
			v, err := parseNumber(cell(n.col))
			if err != nil || v < 0 {
				return nil, &RowError{Row: rowNum, Msg: fmt.Sprintf("nieprawidłowa wartość w kolumnie %q", n.col)}
			}
			*n.dst = v
		}

		day, ok := byDay[dayNumber]
		if !ok {
			day = &contract.DietDay{DayNumber: dayNumber}
			byDay[dayNumber] = day
		}
		meal.ID = fmt.Sprintf("d%d-m%d", dayNumber, len(day.Meals)+1)
		day.Meals = append(day.Meals, meal)
	}
	if len(byDay) == 0 {
		return nil, apperr.NewValidation("Plik z dietą nie zawiera posiłków")
	}

	days := make([]contract.DietDay, 0, len(byDay))
	for _, d := range byDay {
		sort.SliceStable(d.Meals, func(i, j int) bool {
			return d.Meals[i].MealType.Order() < d.Meals[j].MealType.Order()
		})
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].DayNumber < days[j].DayNumber })
	return days, nil
}

// ParseIngredients reads "name quantity unit" entries separated by semicolons or new lines.
func ParseIngredients(s string) ([]contract.Ingredient, error) {
	var out []contract.Ingredient
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '\n' }) {
		part = strings.Join(strings.Fields(part), " ")
		if part == "" {
			continue
		}
		m := ingredientRegexp.FindStringSubmatch(part)
		if m == nil {
			out = append(out, contract.Ingredient{Name: part})
			continue
		}
		qty, err := parseNumber(m[2])
		if err != nil {
			return nil, fmt.Errorf("nieprawidłowa ilość składnika %q", part)
		}
		out = append(out, contract.Ingredient{Name: m[1], Quantity: qty, Unit: m[3]})
	}
	return out, nil
}

func parseDay(s string) (int, error) {
	d := digitsRegexp.FindString(s)
	if d == "" {
		return 0, fmt.Errorf("no day number in %q", s)
	}
	n, err := strconv.Atoi(d)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid day number %q", s)
	}
	return n, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// AssignDates sets the calendar date of every day, day 1 being start.
func AssignDates(days []contract.DietDay, start time.Time) {
	for i := range days {
		days[i].Date = start.AddDate(0, 0, days[i].DayNumber-1).Format(time.DateOnly)
	}
}
