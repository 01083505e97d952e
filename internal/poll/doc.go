// Package poll содержит ограниченный по времени поллер.
//
// Until многократно вызывает проверку с фиксированным интервалом, пока
// она не вернёт значение или не истечёт MaxWait:
//
//	url, err := poll.Until(ctx, poll.Options{
//	    Name:     "preview",
//	    Interval: 5 * time.Second,
//	    MaxWait:  2 * time.Minute,
//	}, func(ctx context.Context) (string, bool, error) {
//	    return detector.Check(ctx)
//	})
//
// Ошибка проверки считается временной: она логируется, и ожидание
// продолжается. По истечении MaxWait возвращается *TimeoutError.
package poll
