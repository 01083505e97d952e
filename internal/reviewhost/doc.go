// Package reviewhost — клиент REST API хостинга кода (GitHub).
//
// Get и Post возвращают Response{Status, OK, Data}. Операции поверх них
// (GetPullRequest, GetDiff, ListComments, PostComment) превращают любой
// ответ не из диапазона 2xx в *UpstreamAPIError с именем операции и
// HTTP статусом.
package reviewhost
