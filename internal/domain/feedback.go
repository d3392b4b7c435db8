package domain

import "time"

// RatingMin и RatingMax задают допустимый диапазон каждой оценки.
const (
	RatingMin = 1
	RatingMax = 5
)

// RatingDimensions — число обязательных оценок в одном отзыве.
const RatingDimensions = 6

// Ratings содержит шесть оценок работы фрилансера.
type Ratings struct {
	Communication int `json:"communication_rating"`
	Quality       int `json:"quality_rating"`
	Value         int `json:"value_rating"`
	Timeliness    int `json:"timeliness_rating"`
	Expertise     int `json:"expertise_rating"`
	Overall       int `json:"overall_rating"`
}

// Values возвращает оценки в каноническом порядке.
func (r Ratings) Values() [RatingDimensions]int {
	return [RatingDimensions]int{r.Communication, r.Quality, r.Value, r.Timeliness, r.Expertise, r.Overall}
}

// Mean возвращает среднее по шести оценкам.
func (r Ratings) Mean() float64 {
	sum := 0
	for _, v := range r.Values() {
		sum += v
	}
	return float64(sum) / RatingDimensions
}

// FeedbackInput — поля отзыва, которые задаёт клиент.
type FeedbackInput struct {
	Email          string
	FreelancerName string
	ProfileURL     string
	Ratings        Ratings
	// Comments == nil означает, что комментарий не указан (в БД NULL).
	Comments *string
}

// Feedback представляет сохранённый отзыв клиента о фрилансере.
type Feedback struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FreelancerName string    `json:"freelancer_name"`
	ProfileURL     string    `json:"profile_url"`
	Ratings
	Comments  *string   `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackSummary — агрегат по паре (имя фрилансера, ссылка на профиль).
type FeedbackSummary struct {
	FreelancerName string  `json:"freelancer_name"`
	ProfileURL     string  `json:"profile_url"`
	AvgRating      float64 `json:"avg_rating"`
	HighestRating  int     `json:"highest_rating"`
	LowestRating   int     `json:"lowest_rating"`
	FeedbackCount  int64   `json:"feedback_count"`
}
