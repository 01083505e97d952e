// Package preview ждёт появления preview-окружения для review request.
//
// Бот деплоя (по умолчанию vercel[bot]) публикует комментарий со ссылкой
// на окружение. Detector ищет такую ссылку в комментариях, начиная с
// самых новых; Waiter повторяет поиск через poll.Until, пока ссылка не
// появится или не истечёт MaxWait.
//
// Ссылка извлекается двумя шаблонами по принципу "первое совпадение
// побеждает": сначала ссылка с подписью ([Visit Preview](https://...)),
// затем голое имя хоста (*.vercel.app), к которому добавляется https://.
package preview
